package tradegraph

import (
	"fmt"
	"slices"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
)

// EntityType is the resolution state of an entity node.
type EntityType string

const (
	EntityRaw             EntityType = "RIC"
	EntityGPH             EntityType = "GPH"
	EntityAutonomous      EntityType = "GPH-AUTONOMOUS"
	EntityAutonomousCited EntityType = "GPH-AUTONOMOUS-CITED"
	EntityRestOfWorld     EntityType = "ROTW"
)

// RestOfWorldID is the id of the sentinel node absorbing dead ends.
const RestOfWorldID = "restOfTheWorld"

// Role is one relationship an edge can carry. An edge carries a set of them.
type Role uint8

const (
	ReportedTrade Role = 1 << iota
	GeneratedTrade
	AggregateInto
	Split
	SplitOther
)

var allRoles = []Role{ReportedTrade, GeneratedTrade, AggregateInto, Split, SplitOther}

func (r Role) String() string {
	switch r {
	case ReportedTrade:
		return "REPORTED_TRADE"
	case GeneratedTrade:
		return "GENERATED_TRADE"
	case AggregateInto:
		return "AGGREGATE_INTO"
	case Split:
		return "SPLIT"
	case SplitOther:
		return "SPLIT_OTHER"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole is the inverse of Role.String.
func ParseRole(s string) (Role, error) {
	for _, r := range allRoles {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown edge role %q", s)
}

// RoleSet is a set of roles.
type RoleSet uint8

const (
	// ResolutionRoles are the roles followed when resolving an entity.
	ResolutionRoles = RoleSet(AggregateInto) | RoleSet(Split) | RoleSet(SplitOther)
	// SplitRoles are the roles followed when looking for split ratios.
	SplitRoles = RoleSet(Split) | RoleSet(SplitOther)
	// TradeRoles mark edges carrying trade values.
	TradeRoles = RoleSet(ReportedTrade) | RoleSet(GeneratedTrade)
)

// Roles builds a set from roles.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= RoleSet(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool             { return s&RoleSet(r) != 0 }
func (s RoleSet) With(r Role) RoleSet         { return s | RoleSet(r) }
func (s RoleSet) Union(o RoleSet) RoleSet     { return s | o }
func (s RoleSet) Intersect(o RoleSet) RoleSet { return s & o }
func (s RoleSet) Intersects(o RoleSet) bool   { return s&o != 0 }

// Strings lists the roles in declaration order.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(allRoles))
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, r.String())
		}
	}
	return out
}

// FlowStatus is the resolution status of a trade edge.
type FlowStatus string

const (
	StatusNone             FlowStatus = ""
	StatusToTreat          FlowStatus = "toTreat"
	StatusOk               FlowStatus = "ok"
	StatusIgnoreInternal   FlowStatus = "ignore_internal"
	StatusIgnoreResolved   FlowStatus = "ignore_resolved"
	StatusDiscardCollision FlowStatus = "discard_collision"
	StatusSplitNoRatio     FlowStatus = "split_failed_no_ratio"
	StatusSplitError       FlowStatus = "split_failed_error"
	StatusSplitPartial     FlowStatus = "split_only_partial"
)

// Method tells how the value of a generated edge was obtained.
type Method string

const (
	MethodAggregation    Method = "aggregation"
	MethodSplitToOne     Method = "split_to_one"
	MethodSplitByYears   Method = "split_by_years_ratio"
	MethodSplitByMirrors Method = "split_by_mirror_ratio"
)

// Node is an entity of the year graph.
type Node struct {
	ID         string
	Label      string
	RICKind    common.RICKind
	Type       EntityType
	Cited      bool
	Reporting  bool
	Status     common.StatusKind
	Parent     string
	TotalTrade float64

	ReportingByAggregation bool
	ReportingBySplit       bool
}

// EdgeKey identifies a directed edge.
type EdgeKey struct {
	Source string
	Target string
}

func (k EdgeKey) String() string {
	return k.Source + "->" + k.Target
}

// Edge is a directed relationship. Trade edges carry Exp (value declared by
// the exporter side) and/or Imp (declared by the importer side).
type Edge struct {
	Source string
	Target string
	Roles  RoleSet

	Exp           *float64
	Imp           *float64
	ExpReportedBy []string
	ImpReportedBy []string
	AggregatedExp []string
	AggregatedImp []string

	Method       Method
	Status       FlowStatus
	Notes        []string
	AggregatedIn *EdgeKey

	// SplitTo and ValueToSplit describe the part of a split that could not
	// be attributed and is left for imputation.
	SplitTo      []string
	ValueToSplit *float64
}

func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}

// Value returns the value declared for direction d.
func (e *Edge) Value(d common.Direction) (float64, bool) {
	v := e.Exp
	if d == common.Import {
		v = e.Imp
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// BestValue is the largest of the declared values.
func (e *Edge) BestValue() (float64, bool) {
	switch {
	case e.Exp != nil && e.Imp != nil:
		return max(*e.Exp, *e.Imp), true
	case e.Exp != nil:
		return *e.Exp, true
	case e.Imp != nil:
		return *e.Imp, true
	}
	return 0, false
}

func (e *Edge) addNote(note string) {
	if note != "" {
		e.Notes = append(e.Notes, note)
	}
}

func (e *Edge) clone() *Edge {
	c := *e
	c.Exp = clonePtr(e.Exp)
	c.Imp = clonePtr(e.Imp)
	c.ValueToSplit = clonePtr(e.ValueToSplit)
	c.ExpReportedBy = slices.Clone(e.ExpReportedBy)
	c.ImpReportedBy = slices.Clone(e.ImpReportedBy)
	c.AggregatedExp = slices.Clone(e.AggregatedExp)
	c.AggregatedImp = slices.Clone(e.AggregatedImp)
	c.Notes = slices.Clone(e.Notes)
	c.SplitTo = slices.Clone(e.SplitTo)
	if e.AggregatedIn != nil {
		k := *e.AggregatedIn
		c.AggregatedIn = &k
	}
	return &c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func ptr(v float64) *float64 {
	return &v
}

// Graph is the resolution and trade graph of one year. It keeps insertion
// order so every pass is deterministic.
type Graph struct {
	Year int

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	out       map[string][]EdgeKey
	in        map[string][]EdgeKey

	passes pass
}

// New creates an empty graph for year.
func New(year int) *Graph {
	return &Graph{
		Year:  year,
		nodes: make(map[string]*Node),
		edges: make(map[EdgeKey]*Edge),
		out:   make(map[string][]EdgeKey),
		in:    make(map[string][]EdgeKey),
	}
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// MergeNode returns the node id, creating it first when missing, and
// applies update to it.
func (g *Graph) MergeNode(id string, update func(n *Node)) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id, Label: id}
		g.nodes[id] = n
		g.nodeOrder = append(g.nodeOrder, id)
	}
	if update != nil {
		update(n)
	}
	return n
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodeOrder) }
func (g *Graph) EdgeCount() int { return len(g.edgeOrder) }

func (g *Graph) Edge(source, target string) (*Edge, bool) {
	e, ok := g.edges[EdgeKey{Source: source, Target: target}]
	return e, ok
}

func (g *Graph) EdgeByKey(key EdgeKey) (*Edge, bool) {
	e, ok := g.edges[key]
	return e, ok
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, g.edges[k])
	}
	return out
}

// FilterEdges returns the keys of the edges matching keep, in insertion
// order. Keys stay valid while the graph grows.
func (g *Graph) FilterEdges(keep func(e *Edge) bool) []EdgeKey {
	var out []EdgeKey
	for _, k := range g.edgeOrder {
		if keep(g.edges[k]) {
			out = append(out, k)
		}
	}
	return out
}

// UpsertEdge returns the edge source->target, creating it when missing.
// Both nodes must exist.
func (g *Graph) UpsertEdge(source, target string) *Edge {
	k := EdgeKey{Source: source, Target: target}
	if e, ok := g.edges[k]; ok {
		return e
	}
	if !g.HasNode(source) || !g.HasNode(target) {
		panic(fmt.Sprintf("tradegraph: edge %s on missing node", k))
	}
	e := &Edge{Source: source, Target: target}
	g.edges[k] = e
	g.edgeOrder = append(g.edgeOrder, k)
	g.out[source] = append(g.out[source], k)
	g.in[target] = append(g.in[target], k)
	return e
}

// AddRole adds role to the edge source->target, creating it when missing.
func (g *Graph) AddRole(source, target string, role Role) *Edge {
	e := g.UpsertEdge(source, target)
	e.Roles = e.Roles.With(role)
	return e
}

// OutEdges returns the edges leaving id.
func (g *Graph) OutEdges(id string) []*Edge {
	out := make([]*Edge, 0, len(g.out[id]))
	for _, k := range g.out[id] {
		out = append(out, g.edges[k])
	}
	return out
}

// InEdges returns the edges entering id.
func (g *Graph) InEdges(id string) []*Edge {
	out := make([]*Edge, 0, len(g.in[id]))
	for _, k := range g.in[id] {
		out = append(out, g.edges[k])
	}
	return out
}

// IncidentEdges returns every edge touching id once.
func (g *Graph) IncidentEdges(id string) []*Edge {
	out := g.OutEdges(id)
	for _, e := range g.InEdges(id) {
		if e.Source != e.Target {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) Degree(id string) int {
	return len(g.IncidentEdges(id))
}

// connectionsExcept counts the edges of id whose other end is not other.
func (g *Graph) connectionsExcept(id, other string) int {
	n := 0
	for _, e := range g.IncidentEdges(id) {
		if e.Source != other && e.Target != other {
			n++
		}
	}
	return n
}

// Clone deep-copies the graph.
func (g *Graph) Clone() *Graph {
	c := New(g.Year)
	c.passes = g.passes
	for _, id := range g.nodeOrder {
		n := *g.nodes[id]
		c.nodes[id] = &n
	}
	c.nodeOrder = slices.Clone(g.nodeOrder)
	for _, k := range g.edgeOrder {
		c.edges[k] = g.edges[k].clone()
	}
	c.edgeOrder = slices.Clone(g.edgeOrder)
	for id, keys := range g.out {
		c.out[id] = slices.Clone(keys)
	}
	for id, keys := range g.in {
		c.in[id] = slices.Clone(keys)
	}
	return c
}

func (g *Graph) ensureRestOfWorld() {
	if g.HasNode(RestOfWorldID) {
		return
	}
	g.MergeNode(RestOfWorldID, func(n *Node) {
		n.Label = "Rest Of The World"
		n.Type = EntityRestOfWorld
		n.RICKind = common.RICGeographicalArea
	})
}

func (g *Graph) label(id string) string {
	if n, ok := g.nodes[id]; ok {
		return n.Label
	}
	return id
}
