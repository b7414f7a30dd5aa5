package tradegraph

import (
	"errors"
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
)

var (
	// ErrPassOrder is returned when a pass runs before its prerequisites.
	ErrPassOrder = errors.New("graph pass out of order")
	// ErrResolutionCycle is returned when resolution edges loop.
	ErrResolutionCycle = errors.New("resolution cycle")
)

// Reference holds the static tables describing raw political units.
type Reference struct {
	// Units maps RIC names to their definition.
	Units map[string]common.RICEntity
	// Groups maps a group RIC name to the RIC names of its parts.
	Groups map[string][]string
	// Areas maps a geography name to its member entities.
	Areas map[string][]common.AreaMember
	// Colonial maps a colonial area RIC name to the geography it covers.
	Colonial map[string]common.ColonialArea
	// Informal maps an informal GPH code to its declared parts.
	Informal map[string][]common.InformalPart
}

type pass uint16

const (
	passBaseline pass = 1 << iota
	passNormalized
	passAggregated
	passAreas
	passInformal
	passCited
	passFlagged
	passOneToOne
	passReporting
)

// stage is one ordered mutation of a year graph. A stage refuses to run on a
// graph that has not gone through the passes it requires.
type stage struct {
	name     string
	requires pass
	marks    pass
	run      func(g *Graph) error
}

func (s stage) apply(g *Graph) (*Graph, error) {
	if g.passes&s.requires != s.requires {
		return g, fmt.Errorf("%w: %s on graph %d", ErrPassOrder, s.name, g.Year)
	}
	if err := s.run(g); err != nil {
		return g, fmt.Errorf("%s: %w", s.name, err)
	}
	g.passes |= s.marks
	return g, nil
}

// Builder turns raw trade rows of a year into a resolved year graph.
// It is stateless between calls and can build several years concurrently.
type Builder struct {
	resolver *gph.Resolver
	ref      *Reference
}

// NewBuilder creates a builder resolving sovereignty with resolver.
func NewBuilder(resolver *gph.Resolver, ref *Reference) *Builder {
	if ref == nil {
		ref = &Reference{}
	}
	return &Builder{resolver: resolver, ref: ref}
}

func (b *Builder) stages() []stage {
	return []stage{
		{"normalize", passBaseline, passNormalized, b.normalize},
		{"aggregate autonomous", passNormalized, passAggregated, b.aggregateAutonomous},
		{"split areas", passAggregated, passAreas, b.splitAreas},
		{"split informal", passAggregated, passInformal, b.splitInformal},
		{"flag cited", passAggregated | passAreas | passInformal, passCited, flagAutonomousCited},
		{"flag flows", passCited, passFlagged, flagFlowsToTreat},
		{"resolve one to one", passFlagged, passOneToOne, resolveOneToOne},
		{"propagate reporting", passOneToOne, passReporting, propagateReporting},
	}
}

// Build constructs the graph of year from rows and runs every pass up to the
// one-to-one resolution. Ratio inference is a separate, cross-year phase.
func (b *Builder) Build(year int, rows []common.TradeRow) (*Graph, error) {
	log := logger.With("year", year)

	g := b.Baseline(year, rows)
	log.Debug("Baseline built", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	var err error
	for _, s := range b.stages() {
		if g, err = s.apply(g); err != nil {
			return nil, err
		}
		log.Debug("Pass done", "pass", s.name, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	}
	return g, nil
}

// Normalize runs the RIC to GPH normalization pass on a baseline graph.
func (b *Builder) Normalize(g *Graph) (*Graph, error) { return b.stages()[0].apply(g) }

// AggregateAutonomous runs the sovereignty aggregation pass.
func (b *Builder) AggregateAutonomous(g *Graph) (*Graph, error) { return b.stages()[1].apply(g) }

// SplitAreas runs the area decomposition pass.
func (b *Builder) SplitAreas(g *Graph) (*Graph, error) { return b.stages()[2].apply(g) }

// SplitInformal runs the informal entity decomposition pass.
func (b *Builder) SplitInformal(g *Graph) (*Graph, error) { return b.stages()[3].apply(g) }

// FlagCited promotes cited autonomous entities.
func (b *Builder) FlagCited(g *Graph) (*Graph, error) { return b.stages()[4].apply(g) }

// FlagFlows marks reported flows as resolved or to treat.
func (b *Builder) FlagFlows(g *Graph) (*Graph, error) { return b.stages()[5].apply(g) }

// ResolveOneToOne reroutes the flows whose both ends resolve to one entity.
func (b *Builder) ResolveOneToOne(g *Graph) (*Graph, error) { return b.stages()[6].apply(g) }

// unit returns the definition of a RIC name, falling back on what the trade
// row says about it.
func (b *Builder) unit(name string, kind common.RICKind, parent string) (common.RICEntity, bool) {
	if u, ok := b.ref.Units[name]; ok {
		return u, true
	}
	if kind == "" {
		return common.RICEntity{}, false
	}
	return common.RICEntity{Name: name, Kind: kind, Parent: parent}, true
}

func (b *Builder) upsertUnit(g *Graph, u common.RICEntity, cited, reporting bool) *Node {
	return g.MergeNode(u.NodeID(), func(n *Node) {
		n.Label = u.Name
		n.RICKind = u.Kind
		n.Parent = u.Parent
		if u.Kind == common.RICGPHEntity && u.GPHCode != "" {
			n.Type = EntityGPH
			if record, ok := b.resolver.StatusOf(u.GPHCode, g.Year); ok {
				n.Status = record.Status
			}
		} else {
			n.Type = EntityRaw
		}
		n.Cited = n.Cited || cited
		n.Reporting = n.Reporting || reporting
	})
}

// Baseline builds the reported trade network of year:
// (reporter) -[REPORTED_TRADE]-> (partner) for exports and the reverse for
// imports. Values of rows on the same pair and direction add up.
func (b *Builder) Baseline(year int, rows []common.TradeRow) *Graph {
	g := New(year)
	for _, r := range rows {
		reporter, ok := b.unit(r.Reporter, r.ReporterKind, r.ReporterParent)
		if !ok {
			logger.Warn("Unknown reporting", "reporting", r.Reporter, "year", year)
			continue
		}
		partner, ok := b.unit(r.Partner, r.PartnerKind, r.PartnerParent)
		if !ok {
			logger.Warn("Unknown partner", "partner", r.Partner, "year", year)
			continue
		}
		b.upsertUnit(g, reporter, true, true)
		b.upsertUnit(g, partner, true, false)

		from, to := reporter.NodeID(), partner.NodeID()
		if r.Direction == common.Import {
			from, to = to, from
		}
		e := g.AddRole(from, to, ReportedTrade)
		value := r.Value()
		if r.Direction == common.Import {
			e.Imp = addValue(e.Imp, value)
			e.ImpReportedBy = unionSorted(e.ImpReportedBy, reporter.Name)
		} else {
			e.Exp = addValue(e.Exp, value)
			e.ExpReportedBy = unionSorted(e.ExpReportedBy, reporter.Name)
		}
	}

	for _, n := range g.Nodes() {
		total := 0.0
		for _, e := range g.IncidentEdges(n.ID) {
			switch {
			case e.Exp != nil:
				total += *e.Exp
			case e.Imp != nil:
				total += *e.Imp
			}
		}
		n.TotalTrade = total
	}
	g.passes |= passBaseline
	return g
}

func addValue(current *float64, v float64) *float64 {
	if current == nil {
		return ptr(v)
	}
	return ptr(*current + v)
}
