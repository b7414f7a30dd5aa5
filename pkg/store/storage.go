package store

import (
	"context"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"
)

// GraphStorage defines the interface for reading raw flows and persisting
// resolved year graphs. It satisfies tradegraph.FlowSource.
type GraphStorage interface {
	// FlowRows returns the valued flows of year, world totals excluded.
	FlowRows(ctx context.Context, year int) ([]common.TradeRow, error)

	// SaveGraph replaces the stored graph of g.Year by g.
	SaveGraph(ctx context.Context, g *tradegraph.Graph) error
	// DeleteYear removes the stored graph of year.
	DeleteYear(ctx context.Context, year int) error
	// ResolvedYears lists the years holding a stored graph.
	ResolvedYears(ctx context.Context) ([]int, error)
}
