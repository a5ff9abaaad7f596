package corpus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/glanxiv/internal/apperr"
	"github.com/starford/glanxiv/internal/models"
)

// fakeSource returns the configured batch or error. When gate is non-nil
// each fetch blocks until it is closed or receives a value.
type fakeSource struct {
	mu    sync.Mutex
	batch models.Batch
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeSource) FetchAll(ctx context.Context) (models.Batch, error) {
	f.calls.Add(1)
	f.mu.Lock()
	gate, batch, err := f.gate, f.batch, f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Batch{}, ctx.Err()
		}
	}
	return batch, err
}

func (f *fakeSource) set(batch models.Batch, err error, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batch, f.err, f.gate = batch, err, gate
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func batchOf(titles ...string) models.Batch {
	var b models.Batch
	for i, title := range titles {
		b.Records = append(b.Records, models.Record{
			ID:        title,
			Title:     title,
			Published: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}
	return b
}

func newTestCache(src Source, clock *fakeClock, opts ...Option) *Cache {
	base := []Option{
		WithTTL(time.Minute),
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewCache(src, append(base, opts...)...)
}

func TestCacheColdLoadIsSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{}
	src.set(batchOf("a", "b"), nil, gate)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	const n = 16
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Get(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
	for _, s := range snaps {
		require.NotNil(t, s)
		assert.Same(t, snaps[0], s)
		assert.Equal(t, 2, s.Len())
	}
}

func TestCacheServesWithinTTL(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("a"), nil, nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	second, err := c.Get(context.Background())
	require.NoError(t, err)
	c.Wait()

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, clock.Now().Add(-30*time.Second), first.LoadedAt)
}

func TestCacheStaleWhileRevalidate(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("old"), nil, nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	old, err := c.Get(context.Background())
	require.NoError(t, err)

	gate := make(chan struct{})
	src.set(batchOf("new1", "new2"), nil, gate)
	clock.Advance(2 * time.Minute)

	// Expired: the old snapshot is returned immediately while one refresh runs.
	for i := 0; i < 5; i++ {
		s, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, old, s)
	}
	close(gate)
	c.Wait()

	assert.EqualValues(t, 2, src.calls.Load())
	fresh, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Len())
	assert.Equal(t, "new2", fresh.Papers[0].ID)
	assert.Equal(t, 1, old.Len(), "old snapshot must not change")
}

func TestCacheRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("a"), nil, nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	prev, err := c.Get(context.Background())
	require.NoError(t, err)

	src.set(models.Batch{}, errors.New("disk gone"), nil)
	clock.Advance(2 * time.Minute)

	s, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, apperr.ErrSourceUnavailable)
	assert.Same(t, prev, s)

	// The failed attempt counts towards the TTL: no retry until it passes.
	s, err = c.Get(context.Background())
	require.NoError(t, err)
	c.Wait()
	assert.Same(t, prev, s)
	assert.EqualValues(t, 2, src.calls.Load())

	src.set(batchOf("x", "y", "z"), nil, nil)
	clock.Advance(2 * time.Minute)
	_, _ = c.Get(context.Background())
	c.Wait()
	assert.EqualValues(t, 3, src.calls.Load())
	assert.Equal(t, 3, c.Current().Len())
}

func TestCacheColdFailureReturnsEmptySnapshot(t *testing.T) {
	src := &fakeSource{}
	src.set(models.Batch{}, errors.New("unreachable"), nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	s, err := c.Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrSourceUnavailable)
	require.NotNil(t, s)
	assert.True(t, s.Unavailable)
	assert.Equal(t, 0, s.Len())
	assert.NotNil(t, s.Papers)

	again, err := c.Get(context.Background())
	assert.NoError(t, err)
	assert.Same(t, s, again)
	assert.EqualValues(t, 1, src.calls.Load(), "no synchronous retry")

	src.set(batchOf("a"), nil, nil)
	clock.Advance(2 * time.Minute)
	_, _ = c.Get(context.Background())
	c.Wait()
	got := c.Current()
	assert.False(t, got.Unavailable)
	assert.Equal(t, 1, got.Len())
}

func TestCacheInvalidate(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("a"), nil, nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	src.set(batchOf("a", "b"), nil, nil)
	c.Invalidate()
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	c.Wait()

	assert.EqualValues(t, 2, src.calls.Load())
	assert.Equal(t, 2, c.Current().Len())

	_, _ = c.Get(context.Background())
	c.Wait()
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCacheRefreshHook(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("a"), nil, nil)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	var hooked atomic.Int32
	c := newTestCache(src, clock, WithRefreshHook(func(s *Snapshot) {
		hooked.Add(1)
	}))

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hooked.Load())

	src.set(models.Batch{}, errors.New("down"), nil)
	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 2, hooked.Load())
}

func TestCacheFetchTimeout(t *testing.T) {
	src := &fakeSource{}
	src.set(batchOf("a"), nil, make(chan struct{}))
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock, WithFetchTimeout(20*time.Millisecond))

	s, err := c.Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.Unavailable)
}

func TestCacheGetHonoursCallerContext(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{}
	src.set(batchOf("a"), nil, gate)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(src, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := c.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, s)

	// The fetch itself is detached from the caller and still completes.
	close(gate)
	s, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}
