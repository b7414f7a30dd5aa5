package tradegraph

import (
	"fmt"
	"slices"
)

// AutonomousResolution is the set of autonomous entities a node stands for
// and the resolution roles followed to reach them.
type AutonomousResolution struct {
	IDs       []string
	Traversed RoleSet
}

func (r *AutonomousResolution) add(id string) {
	if !slices.Contains(r.IDs, id) {
		r.IDs = append(r.IDs, id)
	}
}

func (r *AutonomousResolution) merge(o AutonomousResolution) {
	for _, id := range o.IDs {
		r.add(id)
	}
	r.Traversed |= o.Traversed
}

func isAutonomousType(t EntityType) bool {
	return t == EntityAutonomous || t == EntityAutonomousCited
}

// ResolveAutonomous resolves node id to the autonomous entities reached by
// following the edges carrying one of the limit roles. A zero limit follows
// every resolution role. Dead ends resolve to the rest of the world.
// Resolution does not modify g.
func ResolveAutonomous(g *Graph, id string, limit RoleSet) (AutonomousResolution, error) {
	if limit == 0 {
		limit = ResolutionRoles
	}
	n, ok := g.Node(id)
	if !ok {
		return AutonomousResolution{}, fmt.Errorf("resolve %s: node not in graph %d", id, g.Year)
	}
	if isAutonomousType(n.Type) {
		return AutonomousResolution{IDs: []string{id}}, nil
	}
	return resolveFrom(g, id, limit, map[string]bool{})
}

func resolutionEdges(g *Graph, id string, limit RoleSet) []*Edge {
	var out []*Edge
	for _, e := range g.OutEdges(id) {
		if e.Roles.Intersects(limit) {
			out = append(out, e)
		}
	}
	return out
}

func resolveFrom(g *Graph, id string, limit RoleSet, onPath map[string]bool) (AutonomousResolution, error) {
	var res AutonomousResolution
	edges := resolutionEdges(g, id, limit)
	if len(edges) == 0 {
		res.add(RestOfWorldID)
		return res, nil
	}

	onPath[id] = true
	defer delete(onPath, id)

	for _, e := range edges {
		res.Traversed |= e.Roles.Intersect(limit)
		target, ok := g.Node(e.Target)
		switch {
		case ok && isAutonomousType(target.Type):
			res.add(e.Target)
		case onPath[e.Target]:
			return AutonomousResolution{}, fmt.Errorf("%w: %s -> %s in %d", ErrResolutionCycle, id, e.Target, g.Year)
		default:
			sub, err := resolveFrom(g, e.Target, limit, onPath)
			if err != nil {
				return AutonomousResolution{}, err
			}
			res.merge(sub)
		}
	}
	return res, nil
}
