package tradegraph

import (
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// splitAreas links geographical and colonial areas to the autonomous
// entities they cover: (area) -[SPLIT_OTHER]-> (member).
func (b *Builder) splitAreas(g *Graph) error {
	for _, n := range g.Nodes() {
		if !n.RICKind.IsArea() || n.Type == EntityRestOfWorld {
			continue
		}
		members, ok := b.areaMembers(n, g.Year)
		if !ok {
			continue
		}

		colonial := n.RICKind == common.RICColonialArea
		empire := ""
		if colonial {
			empire = b.ref.Units[n.Parent].GPHCode
		}

		for _, m := range members {
			if colonial {
				record, ok := b.resolver.StatusOf(m.GPHCode, g.Year)
				if !ok || record.Status != common.StatusColonyOf || record.Sovereign != empire {
					continue
				}
			}
			res, err := b.resolver.ResolveAutonomous(m.GPHCode, g.Year)
			if err != nil {
				return fmt.Errorf("area %s member %s: %w", n.Label, m.GPHCode, err)
			}
			target := res.Entity.Code
			if res.Status == "" || target == n.ID || !g.HasNode(target) {
				continue
			}
			// members trading with nobody else bring no information
			if g.connectionsExcept(target, n.ID) == 0 {
				logger.Debug("Skipping isolated area member", "area", n.Label, "member", target, "year", g.Year)
				continue
			}
			g.AddRole(n.ID, target, SplitOther)
		}
	}
	return nil
}

// areaMembers lists the candidate members of an area node. Continents and
// the world enumerate the whole entity reference.
func (b *Builder) areaMembers(n *Node, year int) ([]common.AreaMember, bool) {
	geography := n.Label
	continental := common.IsContinent(geography)
	if n.RICKind == common.RICColonialArea {
		translation, ok := b.ref.Colonial[n.Label]
		if !ok {
			logger.Warn("Colonial area not in geographical translation table", "area", n.Label, "year", year)
			return nil, false
		}
		geography = translation.Geography
		continental = translation.Continental
	}
	world := geography == string(common.World)

	if !continental && !world {
		members, ok := b.ref.Areas[geography]
		if !ok {
			logger.Warn("Geographical area without members", "area", n.Label, "geography", geography, "year", year)
		}
		return members, ok
	}

	var members []common.AreaMember
	for _, e := range b.resolver.Source().Entities() {
		if world || string(e.Continent) == geography {
			members = append(members, common.AreaMember{GPHCode: e.Code, Name: e.Name, Continent: e.Continent})
		}
	}
	return members, true
}
