package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/glanxiv/internal/apperr"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second

	// flightKey is shared by cold loads, background and forced refreshes so
	// at most one fetch is in progress at any time.
	flightKey = "corpus"
)

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long a snapshot is served before a refresh is attempted.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFetchTimeout bounds a single source fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithIDFallback selects how records without an id are assigned one.
func WithIDFallback(f IDFallback) Option {
	return func(c *Cache) { c.idFallback = f }
}

// WithRefreshHook registers fn to be called after every successful load with
// the new snapshot.
func WithRefreshHook(fn func(*Snapshot)) Option {
	return func(c *Cache) { c.onRefresh = fn }
}

// Cache serves corpus snapshots with stale-while-revalidate semantics.
//
// The first Get loads synchronously. Later calls return the current snapshot
// immediately; once it is older than the TTL (or after Invalidate) a single
// background refresh is started and the old snapshot keeps being served until
// the new one is swapped in.
type Cache struct {
	src          Source
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	idFallback   IDFallback
	onRefresh    func(*Snapshot)

	current     atomic.Pointer[Snapshot]
	lastAttempt atomic.Int64 // unix nanos of the last finished fetch
	stale       atomic.Bool
	refreshing  atomic.Bool
	group       singleflight.Group
	wg          sync.WaitGroup
}

// NewCache creates a Cache over src. Nothing is fetched until the first Get.
func NewCache(src Source, opts ...Option) *Cache {
	c := &Cache{
		src:          src,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       slog.Default(),
		idFallback:   IDRandom,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the current snapshot, loading it on first use.
//
// When the first load fails, Get stores and returns an empty snapshot marked
// Unavailable together with an error wrapping apperr.ErrSourceUnavailable.
// Later calls return that snapshot without error and retry in the background
// once the TTL has passed.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		if c.expired() {
			c.refreshAsync()
		}
		return snap, nil
	}
	return c.flight(ctx, true)
}

// Current returns the loaded snapshot without triggering any fetch, or nil.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Refresh fetches synchronously and returns the resulting snapshot. If a
// fetch is already running, Refresh waits for it instead of starting another.
// On failure the previous snapshot is kept and returned with the error.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.flight(ctx, false)
}

// Invalidate marks the current snapshot as expired; the next Get starts a
// background refresh regardless of the TTL.
func (c *Cache) Invalidate() {
	c.stale.Store(true)
}

// Wait blocks until background refreshes have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) expired() bool {
	if c.stale.Load() {
		return true
	}
	last := time.Unix(0, c.lastAttempt.Load())
	return c.now().Sub(last) >= c.ttl
}

func (c *Cache) refreshAsync() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.refreshing.Store(false)
		_, _ = c.flight(context.Background(), false)
	}()
}

// flight runs load under the shared singleflight key. A cancelled ctx stops
// the wait but not the fetch, which finishes for later callers.
func (c *Cache) flight(ctx context.Context, cold bool) (*Snapshot, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		if cold {
			if snap := c.current.Load(); snap != nil {
				return snap, nil
			}
		}
		return c.load(ctx)
	})
	select {
	case <-ctx.Done():
		snap := c.current.Load()
		if snap == nil {
			snap = newSnapshot(nil, c.now(), nil, true)
		}
		return snap, ctx.Err()
	case res := <-ch:
		snap, _ := res.Val.(*Snapshot)
		return snap, res.Err
	}
}

func (c *Cache) load(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	c.stale.Store(false)
	start := c.now()
	batch, err := c.src.FetchAll(ctx)
	c.lastAttempt.Store(c.now().UnixNano())

	if err != nil {
		err = fmt.Errorf("corpus: fetch: %w: %w", apperr.ErrSourceUnavailable, err)
		if prev := c.current.Load(); prev != nil {
			c.logger.Warn("corpus: refresh failed, keeping previous snapshot",
				slog.Time("loaded_at", prev.LoadedAt),
				slog.String("error", err.Error()))
			return prev, err
		}
		c.logger.Error("corpus: initial load failed", slog.String("error", err.Error()))
		empty := newSnapshot(nil, c.now(), nil, true)
		c.current.Store(empty)
		return empty, err
	}

	papers := Normalize(batch.Records, c.now(), c.idFallback)
	snap := newSnapshot(papers, c.now(), batch.PartitionErrors, false)
	c.current.Store(snap)

	for _, pe := range batch.PartitionErrors {
		c.logger.Warn("corpus: partition skipped",
			slog.String("partition", pe.Partition),
			slog.String("error", pe.Err.Error()))
	}
	c.logger.Info("corpus: snapshot loaded",
		slog.Int("papers", snap.Len()),
		slog.Int("partition_errors", len(batch.PartitionErrors)),
		slog.Duration("took", c.now().Sub(start)))

	if c.onRefresh != nil {
		c.onRefresh(snap)
	}
	return snap, nil
}
