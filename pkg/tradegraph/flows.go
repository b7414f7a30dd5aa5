package tradegraph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// MethodFor tells how a flow rerouted through the traversed roles is
// generated.
func MethodFor(traversed RoleSet) Method {
	if traversed.Has(AggregateInto) {
		return MethodAggregation
	}
	return MethodSplitToOne
}

// flagFlowsToTreat marks reported flows between cited autonomous entities
// as resolved and every other reported flow as to treat.
func flagFlowsToTreat(g *Graph) error {
	for _, e := range g.Edges() {
		if !e.Roles.Has(ReportedTrade) {
			continue
		}
		if isCited(g, e.Source) && isCited(g, e.Target) {
			e.Status = StatusOk
		} else {
			e.Status = StatusToTreat
		}
	}
	return nil
}

func isCited(g *Graph, id string) bool {
	n, ok := g.Node(id)
	return ok && n.Type == EntityAutonomousCited
}

func toTreat(e *Edge) bool { return e.Status == StatusToTreat }

// resolveOneToOne reroutes every flow to treat whose both ends resolve to a
// single autonomous entity. Other flows are left to ratio inference.
func resolveOneToOne(g *Graph) error {
	for _, k := range g.FilterEdges(toTreat) {
		exporters, err := ResolveAutonomous(g, k.Source, ResolutionRoles)
		if err != nil {
			return err
		}
		importers, err := ResolveAutonomous(g, k.Target, ResolutionRoles)
		if err != nil {
			return err
		}
		if len(exporters.IDs) != 1 || len(importers.IDs) != 1 {
			continue
		}
		method := MethodFor(exporters.Traversed | importers.Traversed)
		if err := ResolveTradeFlow(g, k, exporters.IDs[0], importers.IDs[0], method, 1); err != nil {
			return err
		}
	}
	return nil
}

// ResolveTradeFlow moves the values of flow key, scaled by ratio, onto the
// edge newSource->newTarget and records what happened on both edges:
//
//   - same ends: the flow is internal and ignored;
//   - no such edge: a generated edge is created;
//   - a reported edge with a value: the flow is discarded, its missing
//     direction is backfilled into the reported edge;
//   - otherwise the flow is merged into the existing edge.
func ResolveTradeFlow(g *Graph, key EdgeKey, newSource, newTarget string, method Method, ratio float64) error {
	flow, ok := g.EdgeByKey(key)
	if !ok {
		return fmt.Errorf("resolve flow %s: no such edge in %d", key, g.Year)
	}
	if newSource == newTarget {
		flow.Status = StatusIgnoreInternal
		return nil
	}
	if newSource == RestOfWorldID || newTarget == RestOfWorldID {
		g.ensureRestOfWorld()
	}
	if !g.HasNode(newSource) || !g.HasNode(newTarget) {
		return fmt.Errorf("resolve flow %s: unknown destination %s->%s in %d", key, newSource, newTarget, g.Year)
	}

	dest := EdgeKey{Source: newSource, Target: newTarget}
	existing, exists := g.EdgeByKey(dest)
	switch {
	case !exists:
		e := g.UpsertEdge(newSource, newTarget)
		e.Roles = Roles(GeneratedTrade)
		e.Exp = scaled(flow.Exp, ratio)
		e.Imp = scaled(flow.Imp, ratio)
		e.ExpReportedBy = slices.Clone(flow.ExpReportedBy)
		e.ImpReportedBy = slices.Clone(flow.ImpReportedBy)
		if flow.Exp != nil {
			e.AggregatedExp = []string{g.label(flow.Source)}
		}
		if flow.Imp != nil {
			e.AggregatedImp = []string{g.label(flow.Target)}
		}
		e.Method = method
		e.Status = StatusOk
		e.addNote(g.flowNote(flow))
		flow.Status = StatusIgnoreResolved
		flow.AggregatedIn = &dest

	case existing == flow:
		flow.Status = StatusOk
		flow.addNote("resolved onto itself")

	case existing.Roles.Has(ReportedTrade) && hasValue(existing):
		flow.Status = StatusDiscardCollision
		flow.addNote(g.flowNote(existing))
		if existing.Exp == nil && flow.Exp != nil {
			existing.Exp = scaled(flow.Exp, ratio)
			existing.ExpReportedBy = unionSorted(existing.ExpReportedBy, flow.ExpReportedBy...)
		}
		if existing.Imp == nil && flow.Imp != nil {
			existing.Imp = scaled(flow.Imp, ratio)
			existing.ImpReportedBy = unionSorted(existing.ImpReportedBy, flow.ImpReportedBy...)
		}

	default:
		if existing.Roles.Has(GeneratedTrade) && existing.Method != "" && existing.Method != method {
			existing.addNote(fmt.Sprintf("mixed methods: %s merged into %s", method, existing.Method))
		}
		if flow.Exp != nil {
			existing.Exp = addValue(existing.Exp, *flow.Exp*ratio)
			existing.AggregatedExp = unionSorted(existing.AggregatedExp, g.label(flow.Source))
		}
		if flow.Imp != nil {
			existing.Imp = addValue(existing.Imp, *flow.Imp*ratio)
			existing.AggregatedImp = unionSorted(existing.AggregatedImp, g.label(flow.Target))
		}
		existing.ExpReportedBy = unionSorted(existing.ExpReportedBy, flow.ExpReportedBy...)
		existing.ImpReportedBy = unionSorted(existing.ImpReportedBy, flow.ImpReportedBy...)
		existing.Roles = existing.Roles.With(GeneratedTrade)
		if existing.Method == "" {
			existing.Method = method
		}
		if existing.Status == StatusNone {
			existing.Status = StatusOk
		}
		existing.addNote(g.flowNote(flow))
		flow.Status = StatusIgnoreResolved
		flow.AggregatedIn = &dest
	}

	logger.Debug("Flow resolved", "flow", key.String(), "to", dest.String(), "status", flow.Status, "ratio", ratio, "year", g.Year)
	return nil
}

func hasValue(e *Edge) bool {
	_, ok := e.BestValue()
	return ok
}

func scaled(v *float64, ratio float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(*v * ratio)
}

// flowNote describes a flow for provenance notes, marking the reporting
// ends with (REP).
func (g *Graph) flowNote(e *Edge) string {
	exporter, importer := g.label(e.Source), g.label(e.Target)
	var b strings.Builder
	b.WriteString(exporter)
	if slices.Contains(e.ExpReportedBy, exporter) {
		b.WriteString(" (REP)")
	}
	b.WriteString(" -> ")
	b.WriteString(importer)
	if slices.Contains(e.ImpReportedBy, importer) {
		b.WriteString(" (REP)")
	}
	b.WriteString(" : ")
	b.WriteString(formatValue(e.Exp))
	b.WriteString("->")
	b.WriteString(formatValue(e.Imp))
	return b.String()
}

func formatValue(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// unionSorted returns the sorted union of list and values, without blanks.
func unionSorted(list []string, values ...string) []string {
	out := slices.Clone(list)
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
