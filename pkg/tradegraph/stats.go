package tradegraph

// Stats counts the nodes and edges of a year graph by kind.
type Stats struct {
	Year       int
	Nodes      map[EntityType]int
	EdgeRoles  map[Role]int
	EdgeStatus map[FlowStatus]int
}

// Stats computes the graph statistics.
func (g *Graph) Stats() Stats {
	s := Stats{
		Year:       g.Year,
		Nodes:      make(map[EntityType]int),
		EdgeRoles:  make(map[Role]int),
		EdgeStatus: make(map[FlowStatus]int),
	}
	for _, n := range g.Nodes() {
		s.Nodes[n.Type]++
	}
	for _, e := range g.Edges() {
		for _, r := range allRoles {
			if e.Roles.Has(r) {
				s.EdgeRoles[r]++
			}
		}
		if e.Roles.Intersects(TradeRoles) {
			s.EdgeStatus[e.Status]++
		}
	}
	return s
}

// Unresolved counts the trade flows left in a failed or partial status.
func (s Stats) Unresolved() int {
	return s.EdgeStatus[StatusToTreat] +
		s.EdgeStatus[StatusSplitNoRatio] +
		s.EdgeStatus[StatusSplitError] +
		s.EdgeStatus[StatusSplitPartial]
}
