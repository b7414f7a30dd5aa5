package tradegraph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	rows   map[int][]common.TradeRow
	broken map[int]bool
}

func (m memorySource) FlowRows(_ context.Context, year int) ([]common.TradeRow, error) {
	if m.broken[year] {
		return nil, errors.New("connection reset")
	}
	return m.rows[year], nil
}

type recordingObserver struct {
	mu       sync.Mutex
	built    []int
	resolved []int
	failed   map[int]string
}

func (o *recordingObserver) YearBuilt(s Stats, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.built = append(o.built, s.Year)
}

func (o *recordingObserver) YearResolved(s Stats, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolved = append(o.resolved, s.Year)
}

func (o *recordingObserver) YearFailed(year int, phase string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[year] = phase
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(NewClientParams{})
	require.Error(t, err)

	c, err := NewClient(NewClientParams{Builder: testBuilder(nil)})
	require.NoError(t, err)
	assert.Equal(t, 8, c.parallelYears)
	assert.Equal(t, 5, c.parallelRatios)
	assert.Equal(t, 10, c.maxYearGap)
}

func TestProcess(t *testing.T) {
	observer := &recordingObserver{failed: make(map[int]string)}
	c, err := NewClient(NewClientParams{
		Builder:        testBuilder(nil),
		ParallelYears:  2,
		ParallelRatios: 2,
		Observer:       observer,
	})
	require.NoError(t, err)

	graphs, err := c.Process(context.Background(), []int{1849, 1850, 1851, 1850}, memorySource{rows: scandinaviaRows()})
	require.NoError(t, err)
	require.Len(t, graphs, 3)

	e, ok := graphs[1850].Edge("FR", "NO")
	require.True(t, ok)
	assert.InDelta(t, 450, value(t, e.Exp), 1e-6)
	assert.ElementsMatch(t, []int{1849, 1850, 1851}, observer.built)
	assert.ElementsMatch(t, []int{1849, 1850, 1851}, observer.resolved)
	assert.Empty(t, observer.failed)
}

func TestProcess_FailingYearIsExcluded(t *testing.T) {
	observer := &recordingObserver{failed: make(map[int]string)}
	c, err := NewClient(NewClientParams{Builder: testBuilder(nil), Observer: observer})
	require.NoError(t, err)

	src := memorySource{rows: scandinaviaRows(), broken: map[int]bool{1851: true}}
	graphs, err := c.Process(context.Background(), []int{1849, 1850, 1851}, src)
	require.NoError(t, err)

	assert.Contains(t, graphs, 1849)
	assert.Contains(t, graphs, 1850)
	assert.NotContains(t, graphs, 1851)
	assert.Equal(t, map[int]string{1851: "rows"}, observer.failed)

	// without 1851 Sweden and Norway stay grouped
	flow, _ := graphs[1850].Edge("FR", "Scandinavia")
	assert.Equal(t, StatusSplitPartial, flow.Status)
}

func TestProcess_ResultIndependentOfBatching(t *testing.T) {
	c, err := NewClient(NewClientParams{Builder: testBuilder(nil)})
	require.NoError(t, err)
	ctx := context.Background()
	src := memorySource{rows: scandinaviaRows()}

	full, err := c.Process(ctx, []int{1849, 1850, 1851}, src)
	require.NoError(t, err)

	for _, batch := range [][]int{{1850, 1851}, {1850}, {1849}, {1851}} {
		part, err := c.Process(ctx, batch, src)
		require.NoError(t, err)
		require.Len(t, part, len(batch))
		for _, year := range batch {
			want, err := MarshalSnapshot(full[year])
			require.NoError(t, err)
			got, err := MarshalSnapshot(part[year])
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got), "year %d in batch %v", year, batch)
		}
	}

	// 1849 is not requested but still lends Denmark's share to 1850
	part, err := c.Process(ctx, []int{1850, 1851}, src)
	require.NoError(t, err)
	dk, ok := part[1850].Edge("FR", "DK")
	require.True(t, ok)
	assert.InDelta(t, 300, value(t, dk.Exp), 1e-6)
	flow, _ := part[1850].Edge("FR", "Scandinavia")
	assert.Equal(t, StatusIgnoreResolved, flow.Status)
}

func TestProcess_NeighbourFailureNotReported(t *testing.T) {
	observer := &recordingObserver{failed: make(map[int]string)}
	c, err := NewClient(NewClientParams{Builder: testBuilder(nil), Observer: observer})
	require.NoError(t, err)

	src := memorySource{rows: scandinaviaRows(), broken: map[int]bool{1849: true}}
	graphs, err := c.Process(context.Background(), []int{1850}, src)
	require.NoError(t, err)

	assert.Len(t, graphs, 1)
	assert.Empty(t, observer.failed)
	assert.Equal(t, []int{1850}, observer.built)
	assert.Equal(t, []int{1850}, observer.resolved)
}

func TestYearsToBuild(t *testing.T) {
	c, err := NewClient(NewClientParams{Builder: testBuilder(nil), MaxYearGap: 2, FirstYear: 1845, LastYear: 1855})
	require.NoError(t, err)

	assert.Equal(t, []int{1846, 1847, 1848, 1849, 1850}, c.yearsToBuild([]int{1848}))
	assert.Equal(t, []int{1845, 1846, 1847, 1853, 1854, 1855}, c.yearsToBuild([]int{1845, 1855}))
	assert.Equal(t, []int{1840}, c.yearsToBuild([]int{1840}), "out of range years are built alone")
}

func TestProcess_Cancelled(t *testing.T) {
	c, err := NewClient(NewClientParams{Builder: testBuilder(nil)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Process(ctx, []int{1849, 1850}, memorySource{rows: scandinaviaRows()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMultiObserver(t *testing.T) {
	a := &recordingObserver{failed: make(map[int]string)}
	b := &recordingObserver{failed: make(map[int]string)}
	m := MultiObserver{a, b}

	m.YearBuilt(Stats{Year: 1850}, time.Second)
	m.YearResolved(Stats{Year: 1850}, time.Second)
	m.YearFailed(1851, "split", assert.AnError)

	for _, o := range []*recordingObserver{a, b} {
		assert.Equal(t, []int{1850}, o.built)
		assert.Equal(t, []int{1850}, o.resolved)
		assert.Equal(t, map[int]string{1851: "split"}, o.failed)
	}
}
