package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocks mimics the app_locks table without expiry.
type fakeLocks struct {
	mu    sync.Mutex
	owner map[string]string
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{owner: map[string]string{}}
}

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.key
	return nil
}

func (f *fakeLocks) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	current, held := f.owner[key]
	switch sql {
	case tryAcquireSQL:
		if held && current != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.owner[key] = token
		return fakeRow{key: key}
	case renewSQL:
		if !held || current != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeLocks) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	if f.owner[key] == token {
		delete(f.owner, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (f *fakeLocks) held(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.owner[key]
	return ok
}

func TestAcquire(t *testing.T) {
	locks := newFakeLocks()
	c := New(locks)
	ctx := context.Background()

	lease, err := c.Acquire(ctx, YearKey(1850), Options{TokenPrefix: "worker-1:"})
	require.NoError(t, err)
	assert.Equal(t, "resolve:year:1850", lease.Key)
	assert.Contains(t, lease.Token, "worker-1:")

	_, err = c.Acquire(ctx, YearKey(1850), Options{})
	require.ErrorIs(t, err, ErrBusy)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, locks.held(YearKey(1850)))
	assert.ErrorIs(t, lease.Context.Err(), context.Canceled)

	again, err := c.Acquire(ctx, YearKey(1850), Options{})
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquire_EmptyKey(t *testing.T) {
	_, err := New(newFakeLocks()).Acquire(context.Background(), "", Options{})
	require.Error(t, err)
}

func TestAcquireYears(t *testing.T) {
	locks := newFakeLocks()
	c := New(locks)
	ctx := context.Background()

	set, err := c.AcquireYears(ctx, []int{1851, 1850, 1851}, Options{})
	require.NoError(t, err)
	assert.Len(t, set.leases, 2)
	assert.Equal(t, YearKey(1850), set.leases[0].Key)
	assert.True(t, locks.held(YearKey(1851)))

	// an overlapping batch is refused and leaves nothing behind
	_, err = c.AcquireYears(ctx, []int{1849, 1850}, Options{})
	require.ErrorIs(t, err, ErrBusy)
	assert.False(t, locks.held(YearKey(1849)))

	require.NoError(t, set.Release(ctx))
	assert.False(t, locks.held(YearKey(1850)))
	assert.False(t, locks.held(YearKey(1851)))
}

func TestWithYears(t *testing.T) {
	locks := newFakeLocks()
	c := New(locks)

	ran := false
	err := c.WithYears(context.Background(), []int{1860}, Options{}, func(ctx context.Context) error {
		ran = true
		assert.True(t, locks.held(YearKey(1860)))
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, locks.held(YearKey(1860)))
}

func TestWithYears_LostLeaseCancels(t *testing.T) {
	locks := newFakeLocks()
	c := New(locks)

	set, err := c.AcquireYears(context.Background(), []int{1850, 1851}, Options{})
	require.NoError(t, err)

	set.leases[0].cancel(ErrLost)
	<-set.Context.Done()
	assert.ErrorIs(t, context.Cause(set.Context), ErrLost)
	require.NoError(t, set.Release(context.Background()))
}

func TestWithLease(t *testing.T) {
	locks := newFakeLocks()
	c := New(locks)

	err := c.WithLease(context.Background(), "resolve:migrate", Options{}, func(ctx context.Context) error {
		assert.True(t, locks.held("resolve:migrate"))
		_, err := c.Acquire(ctx, "resolve:migrate", Options{})
		return err
	})
	require.ErrorIs(t, err, ErrBusy)
	assert.False(t, locks.held("resolve:migrate"))
}
