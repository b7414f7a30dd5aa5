package pgx

import (
	"context"
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/store"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	pgxv5 "github.com/jackc/pgx/v5"
)

const edgeCopyChunkSize = 5000

var nodeColumns = []string{
	"year", "id", "label", "ric_type", "entity_type", "gph_status", "parent",
	"cited", "reporting", "reporting_by_aggregation", "reporting_by_split", "total_trade",
}

var edgeColumns = []string{
	"year", "source", "target", "roles", "exp", "imp",
	"exp_reported_by", "imp_reported_by", "aggregated_exp", "aggregated_imp",
	"method", "status", "notes", "aggregated_in_source", "aggregated_in_target",
	"split_to", "value_to_split",
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	v := util.SanitizePostgresText(s)
	return &v
}

func sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = util.SanitizePostgresText(s)
	}
	return out
}

func nodeRows(g *tradegraph.Graph) [][]any {
	rows := make([][]any, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		rows = append(rows, []any{
			g.Year,
			n.ID,
			util.SanitizePostgresText(n.Label),
			nullable(string(n.RICKind)),
			string(n.Type),
			nullable(string(n.Status)),
			nullable(n.Parent),
			n.Cited,
			n.Reporting,
			n.ReportingByAggregation,
			n.ReportingBySplit,
			n.TotalTrade,
		})
	}
	return rows
}

func edgeRows(g *tradegraph.Graph) [][]any {
	rows := make([][]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		var inSource, inTarget *string
		if e.AggregatedIn != nil {
			inSource, inTarget = nullable(e.AggregatedIn.Source), nullable(e.AggregatedIn.Target)
		}
		rows = append(rows, []any{
			g.Year,
			e.Source,
			e.Target,
			e.Roles.Strings(),
			e.Exp,
			e.Imp,
			sanitizeAll(e.ExpReportedBy),
			sanitizeAll(e.ImpReportedBy),
			sanitizeAll(e.AggregatedExp),
			sanitizeAll(e.AggregatedImp),
			nullable(string(e.Method)),
			nullable(string(e.Status)),
			sanitizeAll(e.Notes),
			inSource,
			inTarget,
			e.SplitTo,
			e.ValueToSplit,
		})
	}
	return rows
}

// SaveGraph replaces the stored graph of g.Year by g in one transaction.
func (s *GraphDBStorage) SaveGraph(ctx context.Context, g *tradegraph.Graph) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteYearSQL, g.Year); err != nil {
		return fmt.Errorf("failed to clear graph %d: %w", g.Year, err)
	}

	nodes := nodeRows(g)
	if _, err := tx.CopyFrom(ctx, pgxv5.Identifier{"resolved_nodes"}, nodeColumns, pgxv5.CopyFromRows(nodes)); err != nil {
		return fmt.Errorf("failed to copy nodes of %d: %w", g.Year, err)
	}

	edges := edgeRows(g)
	err = store.ChunkRange(len(edges), edgeCopyChunkSize, func(start, end int) error {
		_, err := tx.CopyFrom(ctx, pgxv5.Identifier{"resolved_edges"}, edgeColumns, pgxv5.CopyFromRows(edges[start:end]))
		if err != nil {
			return fmt.Errorf("failed to copy edges %d-%d of %d: %w", start, end, g.Year, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit graph %d: %w", g.Year, err)
	}
	logger.Debug("[Store] Graph saved", "year", g.Year, "nodes", len(nodes), "edges", len(edges))
	return nil
}

const deleteYearSQL = `DELETE FROM resolved_nodes WHERE year = $1`

// DeleteYear removes the stored graph of year. Edges go with their nodes.
func (s *GraphDBStorage) DeleteYear(ctx context.Context, year int) error {
	if _, err := s.conn.Exec(ctx, deleteYearSQL, year); err != nil {
		return fmt.Errorf("failed to delete graph %d: %w", year, err)
	}
	return nil
}

// ResolvedYears lists the years holding a stored graph in ascending order.
func (s *GraphDBStorage) ResolvedYears(ctx context.Context) ([]int, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT year FROM resolved_nodes ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved years: %w", err)
	}
	years, err := pgxv5.CollectRows(rows, pgxv5.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved years: %w", err)
	}
	return years, nil
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)
