package tradegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	g := New(1850)
	g.MergeNode("FR", func(n *Node) { n.Type = EntityAutonomousCited })
	g.MergeNode("UK", func(n *Node) { n.Type = EntityAutonomousCited })
	g.MergeNode("Europe", func(n *Node) { n.Type = EntityRaw })

	g.AddRole("FR", "UK", ReportedTrade).Status = StatusOk
	g.AddRole("FR", "Europe", ReportedTrade).Status = StatusSplitNoRatio
	g.AddRole("FR", "Europe", GeneratedTrade)
	g.AddRole("Europe", "UK", Split)

	s := g.Stats()
	assert.Equal(t, 1850, s.Year)
	assert.Equal(t, 2, s.Nodes[EntityAutonomousCited])
	assert.Equal(t, 1, s.Nodes[EntityRaw])
	assert.Equal(t, 2, s.EdgeRoles[ReportedTrade])
	assert.Equal(t, 1, s.EdgeRoles[GeneratedTrade])
	assert.Equal(t, 1, s.EdgeRoles[Split])
	// the split edge carries no trade and has no status
	assert.Equal(t, map[FlowStatus]int{StatusOk: 1, StatusSplitNoRatio: 1}, s.EdgeStatus)
	assert.Equal(t, 1, s.Unresolved())
}
