package tradegraph

import (
	"slices"
)

// flagAutonomousCited promotes autonomous entities that are cited, or whose
// cited part aggregates into them.
func flagAutonomousCited(g *Graph) error {
	for _, n := range g.Nodes() {
		if n.Type != EntityAutonomous {
			continue
		}
		if n.Cited || hasCitedAggregate(g, n.ID) {
			n.Type = EntityAutonomousCited
		}
	}
	return nil
}

func hasCitedAggregate(g *Graph, id string) bool {
	for _, e := range g.InEdges(id) {
		if !e.Roles.Has(AggregateInto) {
			continue
		}
		if src, ok := g.Node(e.Source); ok && src.Cited {
			return true
		}
	}
	return false
}

// propagateReporting flags the cited entities that receive trade reported
// by a reporting unit they aggregate or split from.
func propagateReporting(g *Graph) error {
	for _, n := range g.Nodes() {
		if !n.Reporting {
			continue
		}
		for _, role := range []Role{AggregateInto, Split} {
			propagateFrom(g, n.ID, n.Label, role, map[string]bool{n.ID: true})
		}
	}
	return nil
}

func propagateFrom(g *Graph, from, reporter string, role Role, visited map[string]bool) {
	for _, e := range g.OutEdges(from) {
		if !e.Roles.Has(role) || visited[e.Target] {
			continue
		}
		visited[e.Target] = true
		target, ok := g.Node(e.Target)
		if !ok {
			continue
		}
		if target.Type == EntityAutonomousCited && !target.Reporting && carriesReportsOf(g, target.ID, reporter) {
			if role == AggregateInto {
				target.ReportingByAggregation = true
			} else {
				target.ReportingBySplit = true
			}
			continue
		}
		propagateFrom(g, target.ID, reporter, role, visited)
	}
}

func carriesReportsOf(g *Graph, id, reporter string) bool {
	for _, e := range g.IncidentEdges(id) {
		if !e.Roles.Has(GeneratedTrade) {
			continue
		}
		if slices.Contains(e.ExpReportedBy, reporter) || slices.Contains(e.ImpReportedBy, reporter) {
			return true
		}
	}
	return false
}
