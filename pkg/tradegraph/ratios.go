package tradegraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

// RatioStatus tells whether a split ratio is attributed to one target or
// shared by a group of targets.
type RatioStatus string

const (
	RatioOk      RatioStatus = "ok"
	RatioInGroup RatioStatus = "in_a_group"
)

// Ratio is the share of a split flow attributed to one target. Group is the
// sorted list of targets sharing the ratio when Status is RatioInGroup.
// Year is the year the ratio was last refined from. Exhausted marks a
// target first seen once the whole flow was already attributed: its zero
// share comes from the search order, not from its trade.
type Ratio struct {
	Value     float64
	Status    RatioStatus
	Group     string
	Year      int
	Exhausted bool
}

// SearchYears lists the years around year to look for ratios in, closest
// first and past before future: y-1, y+1, y-2, y+2... bounded by maxGap and
// by [first, last]. A non positive maxGap only bounds by the range.
func SearchYears(year, maxGap, first, last int) []int {
	if maxGap <= 0 {
		maxGap = max(year-first, last-year)
	}
	var years []int
	for d := 1; d <= maxGap; d++ {
		if y := year - d; y >= first && y <= last {
			years = append(years, y)
		}
		if y := year + d; y >= first && y <= last {
			years = append(years, y)
		}
	}
	return years
}

// evidence is the value of the anchor's trade with exactly ids.
type evidence struct {
	ids   []string
	value float64
}

func (e evidence) key() string { return strings.Join(e.ids, "|") }

// FindBilateralRatios infers how a flow between anchor and the targets
// group splits among targets, from the anchor's trade in the nearest years
// of the arena. The year itself is not searched. Targets never seen are
// missing from the result.
func FindBilateralRatios(arena *Arena, year int, anchor string, targets []string, direction common.Direction, maxGap int) (map[string]Ratio, error) {
	ratios := make(map[string]Ratio, len(targets))
	if len(targets) == 0 {
		return ratios, nil
	}
	first, last := arena.YearRange()
	for _, y := range SearchYears(year, maxGap, first, last) {
		remaining := unsolved(targets, ratios)
		if len(remaining) == 0 {
			break
		}
		g, ok := arena.Graph(y)
		if !ok {
			continue
		}
		found, err := relevantFlows(g, anchor, remaining, direction)
		if err != nil {
			return nil, err
		}
		refine(ratios, remaining, dropOverlaps(found), y)
	}
	logger.Debug("Bilateral ratios", "year", year, "anchor", anchor, "targets", len(targets), "solved", len(targets)-len(unsolved(targets, ratios)))
	return ratios, nil
}

func unsolved(targets []string, ratios map[string]Ratio) []string {
	var out []string
	for _, t := range targets {
		if ratios[t].Status != RatioOk {
			out = append(out, t)
		}
	}
	return out
}

// relevantFlows collects the anchor's trade in direction whose partner
// resolves, through split edges only, into the remaining targets. Flows
// concerning the same set of targets add up.
func relevantFlows(g *Graph, anchor string, remaining []string, direction common.Direction) ([]evidence, error) {
	if !g.HasNode(anchor) {
		return nil, nil
	}
	edges := g.OutEdges(anchor)
	if direction == common.Import {
		edges = g.InEdges(anchor)
	}

	var found []evidence
	index := make(map[string]int)
	for _, e := range edges {
		if !e.Roles.Intersects(TradeRoles) || (e.Status != StatusOk && e.Status != StatusToTreat) {
			continue
		}
		value, ok := e.Value(direction)
		if !ok {
			continue
		}
		neighbor := e.Target
		if direction == common.Import {
			neighbor = e.Source
		}

		var ids []string
		if slices.Contains(remaining, neighbor) {
			ids = []string{neighbor}
		} else {
			res, err := ResolveAutonomous(g, neighbor, SplitRoles)
			if err != nil {
				return nil, fmt.Errorf("ratio evidence in %d: %w", g.Year, err)
			}
			if len(res.IDs) == 0 || !containsAll(remaining, res.IDs) {
				continue
			}
			ids = slices.Clone(res.IDs)
		}
		slices.Sort(ids)

		ev := evidence{ids: ids, value: value}
		if i, ok := index[ev.key()]; ok {
			found[i].value += value
			continue
		}
		index[ev.key()] = len(found)
		found = append(found, ev)
	}
	return found, nil
}

func containsAll(set, ids []string) bool {
	for _, id := range ids {
		if !slices.Contains(set, id) {
			return false
		}
	}
	return true
}

// dropOverlaps removes the multi target evidence sharing a target with any
// other evidence, so that every target is counted once.
func dropOverlaps(found []evidence) []evidence {
	var out []evidence
	for i, ev := range found {
		if len(ev.ids) > 1 && overlapsOther(found, i) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func overlapsOther(found []evidence, i int) bool {
	for j, other := range found {
		if j == i {
			continue
		}
		for _, id := range found[i].ids {
			if slices.Contains(other.ids, id) {
				return true
			}
		}
	}
	return false
}

// refine spreads the evidence of one year over the targets. Evidence about
// targets never seen before shares the mass not yet attributed; evidence
// about targets of one known group shares that group's ratio.
func refine(ratios map[string]Ratio, remaining []string, found []evidence, year int) {
	const unseen = ""
	scopes := make(map[string][]evidence)
	var order []string
	for _, ev := range found {
		scope, ok := scopeOf(ratios, ev.ids)
		if !ok {
			continue
		}
		if scope != unseen && len(ev.ids) == len(groupMembers(ratios, remaining, scope)) {
			// the whole group again, nothing to learn
			continue
		}
		if _, ok := scopes[scope]; !ok {
			order = append(order, scope)
		}
		scopes[scope] = append(scopes[scope], ev)
	}

	for _, scope := range order {
		mass := unattributed(ratios)
		if scope != unseen {
			mass = ratios[groupMembers(ratios, remaining, scope)[0]].Value
		}
		covered := 0
		total := 0.0
		for _, ev := range scopes[scope] {
			covered += len(ev.ids)
			total += ev.value
		}
		if scope != unseen && covered != len(groupMembers(ratios, remaining, scope)) {
			// a partial view of a group cannot split its ratio
			continue
		}
		if total <= 0 {
			continue
		}
		for _, ev := range scopes[scope] {
			r := Ratio{Value: mass * ev.value / total, Status: RatioOk, Year: year}
			if scope == unseen && mass < 1e-9 {
				r.Value, r.Exhausted = 0, true
			}
			if len(ev.ids) > 1 {
				r.Status = RatioInGroup
				r.Group = ev.key()
			}
			for _, id := range ev.ids {
				ratios[id] = r
			}
		}
	}
}

// scopeOf returns the group every id belongs to, or the unseen scope when
// none has a ratio yet. Evidence mixing scopes cannot be used.
func scopeOf(ratios map[string]Ratio, ids []string) (string, bool) {
	scope, first := "", true
	for _, id := range ids {
		r, seen := ratios[id]
		current := ""
		if seen {
			if r.Status != RatioInGroup {
				return "", false
			}
			current = r.Group
		}
		if !first && current != scope {
			return "", false
		}
		scope, first = current, false
	}
	return scope, true
}

func groupMembers(ratios map[string]Ratio, remaining []string, group string) []string {
	var out []string
	for _, t := range remaining {
		if r, ok := ratios[t]; ok && r.Status == RatioInGroup && r.Group == group {
			out = append(out, t)
		}
	}
	return out
}

// unattributed is the share left once solved targets and groups are
// counted. A group ratio is counted once for the whole group.
func unattributed(ratios map[string]Ratio) float64 {
	used := 0.0
	groups := make(map[string]bool)
	for _, r := range ratios {
		switch {
		case r.Status == RatioOk:
			used += r.Value
		case !groups[r.Group]:
			groups[r.Group] = true
			used += r.Value
		}
	}
	return max(0, 1-used)
}
