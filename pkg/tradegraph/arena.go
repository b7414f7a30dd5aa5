package tradegraph

import (
	"maps"
	"slices"
)

// Arena is the read-only set of year graphs built by the first phase. It is
// shared by concurrent ratio inferences and must not be mutated: a year
// resolving its split flows works on a clone of its graph.
type Arena struct {
	graphs map[int]*Graph
	years  []int
}

// NewArena freezes graphs into an arena.
func NewArena(graphs map[int]*Graph) *Arena {
	a := &Arena{graphs: maps.Clone(graphs)}
	if a.graphs == nil {
		a.graphs = make(map[int]*Graph)
	}
	a.years = slices.Sorted(maps.Keys(a.graphs))
	return a
}

func (a *Arena) Graph(year int) (*Graph, bool) {
	g, ok := a.graphs[year]
	return g, ok
}

// Years returns the years held, ascending.
func (a *Arena) Years() []int {
	return slices.Clone(a.years)
}

// YearRange returns the first and last year held.
func (a *Arena) YearRange() (int, int) {
	if len(a.years) == 0 {
		return 0, 0
	}
	return a.years[0], a.years[len(a.years)-1]
}
