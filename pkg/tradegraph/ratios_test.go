package tradegraph

import (
	"testing"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArena(t *testing.T, rows map[int][]common.TradeRow) *Arena {
	t.Helper()
	b := testBuilder(nil)
	graphs := make(map[int]*Graph)
	for year, r := range rows {
		g, err := b.Build(year, r)
		require.NoError(t, err, "build %d", year)
		graphs[year] = g
	}
	return NewArena(graphs)
}

func TestSearchYears(t *testing.T) {
	tests := []struct {
		name        string
		year, gap   int
		first, last int
		want        []int
	}{
		{"alternating outward", 1850, 2, 1800, 1900, []int{1849, 1851, 1848, 1852}},
		{"bounded by range", 1850, 3, 1849, 1851, []int{1849, 1851}},
		{"start of range", 1849, 2, 1849, 1860, []int{1850, 1851}},
		{"no gap means whole range", 1850, 0, 1848, 1851, []int{1849, 1851, 1848}},
		{"single year", 1850, 5, 1850, 1850, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchYears(tt.year, tt.gap, tt.first, tt.last))
		})
	}
}

func TestFindBilateralRatios_GroupRefinedByFartherYear(t *testing.T) {
	arena := buildArena(t, scandinaviaRows())

	ratios, err := FindBilateralRatios(arena, 1850, "FR", []string{"DK", "SE", "NO"}, common.Export, 10)
	require.NoError(t, err)

	require.Len(t, ratios, 3)
	assert.Equal(t, RatioOk, ratios["DK"].Status)
	assert.InDelta(t, 1.0/3, ratios["DK"].Value, 1e-9)
	assert.Equal(t, 1849, ratios["DK"].Year)

	assert.Equal(t, RatioOk, ratios["SE"].Status)
	assert.InDelta(t, 1.0/6, ratios["SE"].Value, 1e-9)
	assert.Equal(t, RatioOk, ratios["NO"].Status)
	assert.InDelta(t, 0.5, ratios["NO"].Value, 1e-9)
	assert.Equal(t, 1851, ratios["NO"].Year)

	sum := 0.0
	for _, r := range ratios {
		sum += r.Value
	}
	assert.InDelta(t, 1, sum, 0.01)
}

func TestFindBilateralRatios_GroupKeptWhenNeverSplit(t *testing.T) {
	rows := scandinaviaRows()
	delete(rows, 1851)
	arena := buildArena(t, rows)

	ratios, err := FindBilateralRatios(arena, 1850, "FR", []string{"DK", "SE", "NO"}, common.Export, 10)
	require.NoError(t, err)

	assert.Equal(t, RatioOk, ratios["DK"].Status)
	for _, code := range []string{"SE", "NO"} {
		assert.Equal(t, RatioInGroup, ratios[code].Status, code)
		assert.Equal(t, "NO|SE", ratios[code].Group)
		assert.InDelta(t, 2.0/3, ratios[code].Value, 1e-9)
	}
}

func TestFindBilateralRatios_GapAndDirection(t *testing.T) {
	arena := buildArena(t, scandinaviaRows())

	ratios, err := FindBilateralRatios(arena, 1850, "FR", []string{"DK", "SE", "NO"}, common.Import, 10)
	require.NoError(t, err)
	assert.Empty(t, ratios, "France reports no imports")

	ratios, err = FindBilateralRatios(arena, 1853, "FR", []string{"SE", "NO"}, common.Export, 1)
	require.NoError(t, err)
	assert.Empty(t, ratios, "1851 is out of reach")
}

func TestResolveOneToMany_Scandinavia(t *testing.T) {
	arena := buildArena(t, scandinaviaRows())
	before, _ := arena.Graph(1850)

	g, err := ResolveOneToMany(arena, 1850, 10)
	require.NoError(t, err)

	want := map[string]float64{"DK": 300, "SE": 150, "NO": 450}
	total := 0.0
	for code, v := range want {
		e, ok := g.Edge("FR", code)
		require.True(t, ok, code)
		assert.True(t, e.Roles.Has(GeneratedTrade))
		assert.Equal(t, MethodSplitByYears, e.Method)
		assert.InDelta(t, v, value(t, e.Exp), 1e-6, code)
		total += *e.Exp
	}
	assert.InDelta(t, 900, total, 1e-6)

	flow, _ := g.Edge("FR", "Scandinavia")
	assert.Equal(t, StatusIgnoreResolved, flow.Status)

	original, _ := before.Edge("FR", "Scandinavia")
	assert.Equal(t, StatusToTreat, original.Status, "arena graph is not modified")
	_, ok := before.Edge("FR", "DK")
	assert.False(t, ok)
}

func TestResolveOneToMany_PartialAndUnsplit(t *testing.T) {
	rows := scandinaviaRows()
	delete(rows, 1851)
	arena := buildArena(t, rows)

	g, err := ResolveOneToMany(arena, 1850, 10)
	require.NoError(t, err)

	flow, _ := g.Edge("FR", "Scandinavia")
	assert.Equal(t, StatusSplitPartial, flow.Status)
	assert.ElementsMatch(t, []string{"SE", "NO"}, flow.SplitTo)
	assert.InDelta(t, 600, value(t, flow.ValueToSplit), 1e-6)

	dk, ok := g.Edge("FR", "DK")
	require.True(t, ok)
	assert.InDelta(t, 300, value(t, dk.Exp), 1e-6)
	_, ok = g.Edge("FR", "SE")
	assert.False(t, ok)
}

func TestResolveOneToMany_NoRatio(t *testing.T) {
	arena := buildArena(t, map[int][]common.TradeRow{1850: scandinaviaRows()[1850]})

	g, err := ResolveOneToMany(arena, 1850, 10)
	require.NoError(t, err)
	flow, _ := g.Edge("FR", "Scandinavia")
	assert.Equal(t, StatusSplitNoRatio, flow.Status)
	assert.ElementsMatch(t, []string{"DK", "SE", "NO"}, flow.SplitTo)
}

func TestResolveOneToMany_PrunesReportedPartners(t *testing.T) {
	arena := buildArena(t, map[int][]common.TradeRow{
		1850: {
			export(1850, "France", "Scandinavia", 900),
			export(1850, "France", "Denmark", 100),
			export(1850, "France", "Sweden", 100),
		},
	})

	g, err := ResolveOneToMany(arena, 1850, 10)
	require.NoError(t, err)

	no, ok := g.Edge("FR", "NO")
	require.True(t, ok)
	assert.Equal(t, MethodSplitToOne, no.Method)
	assert.InDelta(t, 900, value(t, no.Exp), 1e-6)
	dk, _ := g.Edge("FR", "DK")
	assert.InDelta(t, 100, value(t, dk.Exp), 1e-6, "reported flow untouched")
}

func TestResolveOneToMany_ShareExhaustedBeforeTargetSeen(t *testing.T) {
	arena := buildArena(t, map[int][]common.TradeRow{
		1848: {export(1848, "France", "Norway", 50)},
		1849: {
			export(1849, "France", "Denmark", 100),
			export(1849, "France", "Sweden", 100),
		},
		1850: {export(1850, "France", "Scandinavia", 900)},
	})

	ratios, err := FindBilateralRatios(arena, 1850, "FR", []string{"DK", "SE", "NO"}, common.Export, 10)
	require.NoError(t, err)
	assert.Equal(t, Ratio{Status: RatioOk, Year: 1848, Exhausted: true}, ratios["NO"])
	assert.False(t, ratios["DK"].Exhausted)

	g, err := ResolveOneToMany(arena, 1850, 10)
	require.NoError(t, err)
	for _, code := range []string{"DK", "SE"} {
		e, ok := g.Edge("FR", code)
		require.True(t, ok, code)
		assert.InDelta(t, 450, value(t, e.Exp), 1e-6, code)
	}
	_, ok := g.Edge("FR", "NO")
	assert.False(t, ok)

	flow, _ := g.Edge("FR", "Scandinavia")
	assert.Equal(t, StatusIgnoreResolved, flow.Status)
	assert.Contains(t, flow.Notes, "no share left for Norway first seen in 1848")
}

func TestResolveOneToMany_Failures(t *testing.T) {
	t.Run("anchor not reporting the split direction", func(t *testing.T) {
		arena := buildArena(t, map[int][]common.TradeRow{
			1850: {export(1850, "Scandinavia", "France", 40)},
		})
		g, err := ResolveOneToMany(arena, 1850, 10)
		require.NoError(t, err)
		// France is the single side but only the group reported the flow
		flow, _ := g.Edge("Scandinavia", "FR")
		assert.Equal(t, StatusSplitError, flow.Status)
		require.NotEmpty(t, flow.Notes)
		assert.Contains(t, flow.Notes[len(flow.Notes)-1], "is not reporting")
	})

	t.Run("n to n", func(t *testing.T) {
		arena := buildArena(t, map[int][]common.TradeRow{
			1850: {
				export(1850, "Scandinavia", "Nordic", 40),
				export(1850, "France", "Denmark", 5),
				export(1850, "France", "Sweden", 5),
			},
		})
		g, err := ResolveOneToMany(arena, 1850, 10)
		require.NoError(t, err)
		flow, _ := g.Edge("Scandinavia", "Nordic")
		assert.Equal(t, StatusSplitError, flow.Status)
		assert.Contains(t, flow.Notes[len(flow.Notes)-1], "n->n case")
	})

	t.Run("missing year", func(t *testing.T) {
		_, err := ResolveOneToMany(NewArena(nil), 1850, 10)
		require.ErrorIs(t, err, ErrNoGraph)
	})
}
