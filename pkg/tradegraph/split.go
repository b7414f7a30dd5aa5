package tradegraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// ErrNoGraph is returned when the arena holds no graph for a year.
var ErrNoGraph = errors.New("no graph for year")

// ResolveOneToMany resolves the flows left to treat in the graph of year by
// splitting them with ratios inferred from nearby years. It works on a copy:
// the arena is left untouched.
func ResolveOneToMany(arena *Arena, year int, maxGap int) (*Graph, error) {
	base, ok := arena.Graph(year)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoGraph, year)
	}
	g := base.Clone()
	for _, k := range g.FilterEdges(toTreat) {
		if err := resolveSplitFlow(arena, g, k, maxGap); err != nil {
			return nil, fmt.Errorf("split %s: %w", k, err)
		}
	}
	if err := propagateReporting(g); err != nil {
		return nil, err
	}
	return g, nil
}

func splitFailed(e *Edge, note string) {
	e.Status = StatusSplitError
	e.addNote(note)
	logger.Debug("Split failed", "flow", e.Key().String(), "reason", note)
}

func resolveSplitFlow(arena *Arena, g *Graph, k EdgeKey, maxGap int) error {
	flow, _ := g.EdgeByKey(k)

	exporters, err := ResolveAutonomous(g, k.Source, ResolutionRoles)
	if err != nil {
		splitFailed(flow, err.Error())
		return nil
	}
	importers, err := ResolveAutonomous(g, k.Target, ResolutionRoles)
	if err != nil {
		splitFailed(flow, err.Error())
		return nil
	}
	nExp, nImp := len(exporters.IDs), len(importers.IDs)

	switch {
	case nExp == 0:
		splitFailed(flow, "Couldn't resolve exporter "+g.label(k.Source))
		return nil
	case nImp == 0:
		splitFailed(flow, "Couldn't resolve importer "+g.label(k.Target))
		return nil
	case nExp > 1 && nImp > 1:
		splitFailed(flow, fmt.Sprintf("n->n case: %s transform to %d %s transform to %d", k.Source, nExp, k.Target, nImp))
		return nil
	case nExp == 1 && nImp == 1:
		return ResolveTradeFlow(g, k, exporters.IDs[0], importers.IDs[0], MethodAggregation, 1)
	}

	// the single side is the anchor, normally the reporter
	anchor, direction, targets := exporters.IDs[0], common.Export, importers.IDs
	if nImp == 1 {
		anchor, direction, targets = importers.IDs[0], common.Import, exporters.IDs
	}
	ends := func(partner string) (string, string) {
		if direction == common.Export {
			return anchor, partner
		}
		return partner, anchor
	}

	reported := reportedPartners(g, anchor)
	targets = slices.DeleteFunc(slices.Clone(targets), func(t string) bool {
		return t == anchor || reported[t]
	})

	value, ok := flow.Value(direction)
	if !ok {
		splitFailed(flow, fmt.Sprintf("1->n where 1- entity %s-[%s]-%s is not reporting", anchor, direction, g.label(anchor)))
		return nil
	}
	switch len(targets) {
	case 0:
		splitFailed(flow, fmt.Sprintf("no split target left once partners reported by %s are removed", g.label(anchor)))
		return nil
	case 1:
		src, dst := ends(targets[0])
		return ResolveTradeFlow(g, k, src, dst, MethodSplitToOne, 1)
	}

	ratios, err := FindBilateralRatios(arena, g.Year, anchor, targets, direction, maxGap)
	if err != nil {
		return err
	}

	solved, solvedRatio := 0, 0.0
	var rest []string
	for _, t := range targets {
		r, ok := ratios[t]
		if !ok || r.Status != RatioOk {
			rest = append(rest, t)
			continue
		}
		solved++
		solvedRatio += r.Value
		if r.Exhausted {
			flow.addNote(fmt.Sprintf("no share left for %s first seen in %d", g.label(t), r.Year))
		}
		if r.Value <= 0 {
			continue
		}
		src, dst := ends(t)
		if err := ResolveTradeFlow(g, k, src, dst, MethodSplitByYears, r.Value); err != nil {
			return err
		}
	}

	residual := 1 - solvedRatio
	if residual < 1e-9 {
		residual = 0
	}
	switch {
	case len(rest) == 1 && residual > 0:
		src, dst := ends(rest[0])
		if err := ResolveTradeFlow(g, k, src, dst, MethodSplitByYears, residual); err != nil {
			return err
		}
	case len(rest) > 1:
		flow.SplitTo = rest
		flow.ValueToSplit = ptr(residual * value)
	}

	switch {
	case solvedRatio == 0:
		flow.Status = StatusSplitNoRatio
	case solved < len(targets):
		flow.Status = StatusSplitPartial
	default:
		flow.Status = StatusIgnoreResolved
	}
	return nil
}

func reportedPartners(g *Graph, id string) map[string]bool {
	out := make(map[string]bool)
	for _, e := range g.IncidentEdges(id) {
		if !e.Roles.Has(ReportedTrade) {
			continue
		}
		if e.Source != id {
			out[e.Source] = true
		}
		if e.Target != id {
			out[e.Target] = true
		}
	}
	return out
}
