package tradegraph

import (
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
)

// aggregateAutonomous links every GPH node to the autonomous entity it
// belongs to in the graph's year: (entity) -[AGGREGATE_INTO]-> (sovereign).
func (b *Builder) aggregateAutonomous(g *Graph) error {
	for _, n := range g.Nodes() {
		if n.Type != EntityGPH {
			continue
		}
		res, err := b.resolver.ResolveAutonomous(n.ID, g.Year)
		if err != nil {
			return fmt.Errorf("resolve %s (%s): %w", n.ID, n.Label, err)
		}
		target := res.Entity.Code
		g.MergeNode(target, func(m *Node) {
			m.Label = res.Entity.Name
			m.Status = res.Status
			if m.RICKind == "" {
				m.RICKind = common.RICGPHEntity
			}
			if res.Autonomous {
				m.Type = EntityAutonomous
			} else if m.Type == "" {
				m.Type = EntityGPH
			}
		})
		if target != n.ID {
			g.AddRole(n.ID, target, AggregateInto)
		}
	}
	return nil
}
