package tradegraph

import (
	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// normalize links every raw unit to the units it stands for:
// (locality) -[AGGREGATE_INTO]-> (parent) and (group) -[SPLIT]-> (part).
func (b *Builder) normalize(g *Graph) error {
	for _, n := range g.Nodes() {
		if n.Type != EntityRaw {
			continue
		}
		b.ricToGPH(g, common.RICEntity{Name: n.Label, Kind: n.RICKind, Parent: n.Parent})
	}
	return nil
}

// ricToGPH makes sure u is in g and adds its normalization edges. Units
// reached for the first time are normalized recursively.
func (b *Builder) ricToGPH(g *Graph, u common.RICEntity) {
	if known, ok := b.ref.Units[u.Name]; ok {
		u = known
	}
	if !g.HasNode(u.NodeID()) {
		b.upsertUnit(g, u, false, false)
	}

	switch u.Kind {
	case common.RICLocality:
		if u.Parent == "" {
			logger.Warn("Locality without parent", "locality", u.Name, "year", g.Year)
			return
		}
		parent, ok := b.ref.Units[u.Parent]
		if !ok {
			logger.Warn("Unknown locality parent", "locality", u.Name, "parent", u.Parent, "year", g.Year)
			return
		}
		if !g.HasNode(parent.NodeID()) {
			b.ricToGPH(g, parent)
		}
		g.AddRole(u.NodeID(), parent.NodeID(), AggregateInto)

	case common.RICGroup:
		parts, ok := b.ref.Groups[u.Name]
		if !ok {
			logger.Warn("Unknown group", "group", u.Name, "year", g.Year)
			return
		}
		for _, name := range parts {
			part, ok := b.ref.Units[name]
			if !ok {
				logger.Warn("Unknown group part", "group", u.Name, "part", name, "year", g.Year)
				continue
			}
			if !g.HasNode(part.NodeID()) {
				b.ricToGPH(g, part)
			}
			// group parts count as cited
			if n, ok := g.Node(part.NodeID()); ok {
				n.Cited = true
			}
			g.AddRole(u.NodeID(), part.NodeID(), Split)
		}
	}
}
