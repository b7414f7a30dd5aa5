package tradegraph

import (
	"encoding/json"
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
)

type snapshot struct {
	Year   int            `json:"year"`
	Passes uint16         `json:"passes"`
	Nodes  []snapshotNode `json:"nodes"`
	Edges  []snapshotEdge `json:"edges"`
}

type snapshotNode struct {
	ID                     string            `json:"id"`
	Label                  string            `json:"label"`
	RICKind                common.RICKind    `json:"ricType,omitempty"`
	Type                   EntityType        `json:"entityType"`
	Cited                  bool              `json:"cited,omitempty"`
	Reporting              bool              `json:"reporting,omitempty"`
	Status                 common.StatusKind `json:"gphStatus,omitempty"`
	Parent                 string            `json:"ricParent,omitempty"`
	TotalTrade             float64           `json:"totalBilateralTrade,omitempty"`
	ReportingByAggregation bool              `json:"reportingByAggregateInto,omitempty"`
	ReportingBySplit       bool              `json:"reportingBySplit,omitempty"`
}

type snapshotEdge struct {
	Source        string     `json:"source"`
	Target        string     `json:"target"`
	Labels        []string   `json:"labels"`
	Exp           *float64   `json:"Exp,omitempty"`
	Imp           *float64   `json:"Imp,omitempty"`
	ExpReportedBy []string   `json:"ExpReportedBy,omitempty"`
	ImpReportedBy []string   `json:"ImpReportedBy,omitempty"`
	AggregatedExp []string   `json:"aggregatedExp,omitempty"`
	AggregatedImp []string   `json:"aggregatedImp,omitempty"`
	Method        Method     `json:"valueGeneratedBy,omitempty"`
	Status        FlowStatus `json:"status,omitempty"`
	Notes         []string   `json:"notes,omitempty"`
	AggregatedIn  *EdgeKey   `json:"aggregatedIn,omitempty"`
	SplitTo       []string   `json:"splitToGPHCodes,omitempty"`
	ValueToSplit  *float64   `json:"valueToSplit,omitempty"`
}

// MarshalSnapshot encodes g as JSON, nodes and edges in insertion order.
func MarshalSnapshot(g *Graph) ([]byte, error) {
	s := snapshot{Year: g.Year, Passes: uint16(g.passes)}
	for _, n := range g.Nodes() {
		s.Nodes = append(s.Nodes, snapshotNode{
			ID:                     n.ID,
			Label:                  n.Label,
			RICKind:                n.RICKind,
			Type:                   n.Type,
			Cited:                  n.Cited,
			Reporting:              n.Reporting,
			Status:                 n.Status,
			Parent:                 n.Parent,
			TotalTrade:             n.TotalTrade,
			ReportingByAggregation: n.ReportingByAggregation,
			ReportingBySplit:       n.ReportingBySplit,
		})
	}
	for _, e := range g.Edges() {
		s.Edges = append(s.Edges, snapshotEdge{
			Source:        e.Source,
			Target:        e.Target,
			Labels:        e.Roles.Strings(),
			Exp:           e.Exp,
			Imp:           e.Imp,
			ExpReportedBy: e.ExpReportedBy,
			ImpReportedBy: e.ImpReportedBy,
			AggregatedExp: e.AggregatedExp,
			AggregatedImp: e.AggregatedImp,
			Method:        e.Method,
			Status:        e.Status,
			Notes:         e.Notes,
			AggregatedIn:  e.AggregatedIn,
			SplitTo:       e.SplitTo,
			ValueToSplit:  e.ValueToSplit,
		})
	}
	return json.Marshal(s)
}

// UnmarshalSnapshot decodes a graph encoded by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode graph snapshot: %w", err)
	}
	g := New(s.Year)
	g.passes = pass(s.Passes)
	for _, n := range s.Nodes {
		node := Node{
			ID:                     n.ID,
			Label:                  n.Label,
			RICKind:                n.RICKind,
			Type:                   n.Type,
			Cited:                  n.Cited,
			Reporting:              n.Reporting,
			Status:                 n.Status,
			Parent:                 n.Parent,
			TotalTrade:             n.TotalTrade,
			ReportingByAggregation: n.ReportingByAggregation,
			ReportingBySplit:       n.ReportingBySplit,
		}
		g.MergeNode(n.ID, func(m *Node) { *m = node })
	}
	for _, se := range s.Edges {
		if !g.HasNode(se.Source) || !g.HasNode(se.Target) {
			return nil, fmt.Errorf("decode graph snapshot %d: edge %s->%s on missing node", s.Year, se.Source, se.Target)
		}
		var roles RoleSet
		for _, l := range se.Labels {
			r, err := ParseRole(l)
			if err != nil {
				return nil, fmt.Errorf("decode graph snapshot %d: %w", s.Year, err)
			}
			roles = roles.With(r)
		}
		e := g.UpsertEdge(se.Source, se.Target)
		e.Roles = roles
		e.Exp, e.Imp = se.Exp, se.Imp
		e.ExpReportedBy, e.ImpReportedBy = se.ExpReportedBy, se.ImpReportedBy
		e.AggregatedExp, e.AggregatedImp = se.AggregatedExp, se.AggregatedImp
		e.Method = se.Method
		e.Status = se.Status
		e.Notes = se.Notes
		e.AggregatedIn = se.AggregatedIn
		e.SplitTo = se.SplitTo
		e.ValueToSplit = se.ValueToSplit
	}
	return g, nil
}
