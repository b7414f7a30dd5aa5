package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/leaselock"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowSource map[int][]common.TradeRow

func (s rowSource) FlowRows(_ context.Context, year int) ([]common.TradeRow, error) {
	rows, ok := s[year]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rows, nil
}

type memoryStore struct {
	saved []int
	fail  bool
}

func (m *memoryStore) SaveGraph(_ context.Context, g *tradegraph.Graph) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.saved = append(m.saved, g.Year)
	return nil
}

func (m *memoryStore) PutSnapshot(ctx context.Context, g *tradegraph.Graph) error {
	return m.SaveGraph(ctx, g)
}

type recordingLocker struct {
	years []int
	busy  bool
}

func (l *recordingLocker) WithYears(ctx context.Context, years []int, _ leaselock.Options, fn func(ctx context.Context) error) error {
	if l.busy {
		return leaselock.ErrBusy
	}
	l.years = years
	return fn(ctx)
}

func testClient(t *testing.T) *tradegraph.Client {
	t.Helper()
	statuses := map[string]map[int][]common.StatusRecord{
		"FR": {1850: {{Status: common.StatusSovereign}}, 1851: {{Status: common.StatusSovereign}}},
		"UK": {1850: {{Status: common.StatusSovereign}}, 1851: {{Status: common.StatusSovereign}}},
	}
	dataset := gph.NewDataset([]common.GPHEntity{
		{Code: "FR", Name: "France", Continent: "Europe"},
		{Code: "UK", Name: "United Kingdom", Continent: "Europe"},
	}, statuses)
	ref := &tradegraph.Reference{Units: map[string]common.RICEntity{
		"France":         {Name: "France", Kind: common.RICGPHEntity, GPHCode: "FR"},
		"United Kingdom": {Name: "United Kingdom", Kind: common.RICGPHEntity, GPHCode: "UK"},
	}}
	c, err := tradegraph.NewClient(tradegraph.NewClientParams{
		Builder: tradegraph.NewBuilder(gph.NewResolver(dataset, nil), ref),
	})
	require.NoError(t, err)
	return c
}

func rows() rowSource {
	row := func(year int) []common.TradeRow {
		return []common.TradeRow{{
			Year: year, Reporter: "France", Partner: "United Kingdom",
			Flow: 100, Unit: 1, Rate: 1, Direction: common.Export,
		}}
	}
	return rowSource{1850: row(1850), 1851: row(1851)}
}

func TestRun(t *testing.T) {
	store, archive, locks := &memoryStore{}, &memoryStore{}, &recordingLocker{}
	r := &Runner{Client: testClient(t), Source: rows(), Store: store, Archive: archive, Locks: locks}

	report, err := r.Run(context.Background(), []int{1851, 1850, 1852})
	require.NoError(t, err)
	assert.Equal(t, []int{1850, 1851}, report.Resolved)
	assert.Equal(t, []int{1852}, report.Failed)
	assert.Equal(t, []int{1850, 1851}, store.saved)
	assert.Equal(t, []int{1850, 1851}, archive.saved)
	assert.Equal(t, []int{1851, 1850, 1852}, locks.years)

	// 1851 is built for ratio search only: neither leased nor saved
	store, locks = &memoryStore{}, &recordingLocker{}
	r = &Runner{Client: testClient(t), Source: rows(), Store: store, Locks: locks}
	report, err = r.Run(context.Background(), []int{1850})
	require.NoError(t, err)
	assert.Equal(t, []int{1850}, report.Resolved)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []int{1850}, store.saved)
	assert.Equal(t, []int{1850}, locks.years)
}

func TestRun_Errors(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), []int{1850})
	require.Error(t, err)

	r := &Runner{Client: testClient(t), Source: rows(), Store: &memoryStore{}, Locks: &recordingLocker{busy: true}}
	_, err = r.Run(context.Background(), []int{1850})
	require.ErrorIs(t, err, leaselock.ErrBusy)

	r = &Runner{Client: testClient(t), Source: rows(), Store: &memoryStore{fail: true}}
	_, err = r.Run(context.Background(), []int{1850})
	require.ErrorContains(t, err, "year 1850")
}
