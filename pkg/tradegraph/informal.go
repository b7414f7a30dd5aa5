package tradegraph

import (
	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// splitInformal links informal entities to their parts present in the
// graph: (informal) -[SPLIT_OTHER]-> (part).
func (b *Builder) splitInformal(g *Graph) error {
	for _, n := range g.Nodes() {
		if n.Type != EntityGPH || n.Status != common.StatusInformal {
			continue
		}
		parts := b.informalParts(n.ID, g.Year)
		logger.Debug("Informal parts", "informal", n.ID, "parts", len(parts), "year", g.Year)
		for _, p := range parts {
			if p == n.ID || !g.HasNode(p) || g.connectionsExcept(p, n.ID) == 0 {
				continue
			}
			g.AddRole(n.ID, p, SplitOther)
		}
	}
	return nil
}

// informalParts returns the declared parts of code valid in year, or the
// parts derived from the status dataset when none are declared.
func (b *Builder) informalParts(code string, year int) []string {
	declared, ok := b.ref.Informal[code]
	if !ok {
		return b.resolver.DerivedInformalParts(code, year)
	}
	var parts []string
	for _, p := range declared {
		if p.ValidIn(year) {
			parts = append(parts, p.Code)
		}
	}
	return parts
}
