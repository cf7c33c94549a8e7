// Package cache is a stale-while-revalidate response cache keyed by request
// parameters. One Cache is created per application instance and injected into
// the services that read through it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultRevalidateTimeout = 20 * time.Second

// Status is the lifecycle state of one cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Policy is the freshness policy of one kind of query.
type Policy struct {
	Name              string
	FreshFor          time.Duration
	RevalidateOnFocus bool
}

// Snapshot is what a reader sees for one key. Data is the last successful
// value when HasData is set, even if Status is StatusError or a background
// revalidation is running (Validating).
type Snapshot[T any] struct {
	Status     Status
	Data       T
	HasData    bool
	Err        error
	UpdatedAt  time.Time
	Validating bool
}

// Fetcher loads a fresh value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// SharedStore is an optional second tier shared between instances.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures a Cache.
type Options struct {
	Shared            SharedStore
	Logger            *zerolog.Logger
	RevalidateTimeout time.Duration
}

type entry struct {
	status     Status
	data       any
	hasData    bool
	err        error
	updatedAt  time.Time // last success
	checkedAt  time.Time // last completed attempt
	validating bool
	stale      bool
	policy     Policy
}

// Cache holds entries for every key read through Fetch. Entries are only
// written by the cache's own load path.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64

	group   singleflight.Group
	shared  SharedStore
	logger  *zerolog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := opts.RevalidateTimeout
	if timeout <= 0 {
		timeout = defaultRevalidateTimeout
	}
	return &Cache{
		entries: make(map[string]*entry),
		shared:  opts.Shared,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Fetch returns the snapshot for key, loading it when needed:
//   - empty key: idle, fetch never runs (dependent queries not ready yet)
//   - fresh entry: served from memory
//   - stale entry with data: stale data returned, revalidated in background
//     against the fetcher (the shared tier only serves cold misses)
//   - otherwise: loaded synchronously; concurrent callers share one load
func Fetch[T any](ctx context.Context, c *Cache, key string, policy Policy, fetch Fetcher[T]) Snapshot[T] {
	if key == "" {
		Requests.WithLabelValues(policy.Name, ResultIdle).Inc()
		return Snapshot[T]{Status: StatusIdle}
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.completed() && c.freshLocked(e) {
		snap := snapshotOf[T](e)
		c.mu.Unlock()
		Requests.WithLabelValues(policy.Name, ResultHit).Inc()
		return snap
	}

	if ok && e.hasData {
		if !e.validating {
			e.validating = true
			e.status = StatusLoading
			gen := c.gen
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				<-load(context.Background(), c, key, gen, policy, fetch, false)
			}()
		}
		snap := snapshotOf[T](e)
		c.mu.Unlock()
		Requests.WithLabelValues(policy.Name, ResultStale).Inc()
		return snap
	}

	gen := c.ensureLoadingLocked(key, policy)
	c.mu.Unlock()
	Requests.WithLabelValues(policy.Name, ResultMiss).Inc()

	return wait[T](ctx, c, key, gen, load(ctx, c, key, gen, policy, fetch, true))
}

// Revalidate loads key synchronously regardless of freshness, skipping the
// shared tier. Previous data survives a failed revalidation.
func Revalidate[T any](ctx context.Context, c *Cache, key string, policy Policy, fetch Fetcher[T]) Snapshot[T] {
	if key == "" {
		return Snapshot[T]{Status: StatusIdle}
	}

	c.mu.Lock()
	gen := c.ensureLoadingLocked(key, policy)
	c.entries[key].validating = true
	c.mu.Unlock()
	Requests.WithLabelValues(policy.Name, ResultForced).Inc()

	return wait[T](ctx, c, key, gen, load(ctx, c, key, gen, policy, fetch, false))
}

// Peek returns the current snapshot for key without loading anything.
func Peek[T any](c *Cache, key string) Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot[T]{Status: StatusIdle}
	}
	return snapshotOf[T](e)
}

// Invalidate marks keys stale and drops them from the shared tier; the next
// Fetch revalidates them against the fetcher.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			e.stale = true
		}
	}
	c.mu.Unlock()

	if c.shared == nil || len(keys) == 0 {
		return
	}
	if err := c.shared.Delete(ctx, keys...); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("shared cache delete failed")
	}
}

// Focus marks every entry whose policy revalidates on focus as stale and
// returns how many were marked.
func (c *Cache) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.policy.RevalidateOnFocus {
			e.stale = true
			n++
		}
	}
	return n
}

// Clear drops every entry. Loads started before Clear never write back.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.gen++
	Entries.Set(0)
}

// FlushShared empties the shared tier when it supports flushing.
func (c *Cache) FlushShared(ctx context.Context) error {
	f, ok := c.shared.(interface{ Flush(context.Context) error })
	if !ok {
		return nil
	}
	return f.Flush(ctx)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until background revalidations finish.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (e *entry) completed() bool {
	return !e.checkedAt.IsZero() && (e.status == StatusSuccess || (e.status == StatusError && e.hasData))
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.stale {
		return false
	}
	return c.now().Sub(e.checkedAt) < e.policy.FreshFor
}

func (c *Cache) ensureLoadingLocked(key string, policy Policy) uint64 {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
		Entries.Set(float64(len(c.entries)))
	}
	e.policy = policy
	e.status = StatusLoading
	return c.gen
}

func snapshotOf[T any](e *entry) Snapshot[T] {
	snap := Snapshot[T]{
		Status:     e.status,
		HasData:    e.hasData,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
		Validating: e.validating,
	}
	if e.hasData {
		if v, ok := e.data.(T); ok {
			snap.Data = v
		}
	}
	return snap
}

// load starts (or joins) the single in-flight load for key in generation gen.
// The load runs on a context detached from the caller so an abandoned request
// does not cancel it for other waiters.
func load[T any](ctx context.Context, c *Cache, key string, gen uint64, policy Policy, fetch Fetcher[T], useShared bool) <-chan singleflight.Result {
	flightKey := strconv.FormatUint(gen, 10) + "|" + key
	if !useShared {
		flightKey = "force|" + flightKey
	}

	return c.group.DoChan(flightKey, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if useShared && c.shared != nil {
			if v, ok := readShared[T](lctx, c, key); ok {
				c.complete(key, gen, policy, v, nil)
				return v, nil
			}
		}

		v, err := fetch(lctx)
		if err == nil && c.shared != nil {
			writeShared(lctx, c, key, policy, v)
		}
		c.complete(key, gen, policy, v, err)
		return v, err
	})
}

func readShared[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	raw, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("shared cache read failed")
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("shared cache entry undecodable")
		return zero, false
	}
	SharedHits.Inc()
	return v, true
}

func writeShared[T any](ctx context.Context, c *Cache, key string, policy Policy, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("shared cache encode failed")
		return
	}
	if err := c.shared.Set(ctx, key, raw, policy.FreshFor); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("shared cache write failed")
	}
}

// complete records the outcome of a load unless the cache was cleared since
// the load started.
func (c *Cache) complete(key string, gen uint64, policy Policy, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		Abandoned.Inc()
		return
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
		Entries.Set(float64(len(c.entries)))
	}

	now := c.now()
	e.policy = policy
	e.validating = false
	e.stale = false
	e.checkedAt = now

	if err != nil {
		e.status = StatusError
		e.err = err
		Failures.WithLabelValues(policy.Name).Inc()
		c.logger.Debug().Err(err).Str("key", key).Bool("has_data", e.hasData).Msg("cache load failed")
		return
	}

	e.status = StatusSuccess
	e.data = data
	e.hasData = true
	e.err = nil
	e.updatedAt = now
}

// wait blocks for the load result or the caller's cancellation.
func wait[T any](ctx context.Context, c *Cache, key string, gen uint64, ch <-chan singleflight.Result) Snapshot[T] {
	select {
	case <-ctx.Done():
		snap := Peek[T](c, key)
		snap.Status = StatusError
		snap.Err = ctx.Err()
		return snap
	case r := <-ch:
		c.mu.Lock()
		e, ok := c.entries[key]
		current := ok && gen == c.gen
		var snap Snapshot[T]
		if current {
			snap = snapshotOf[T](e)
		}
		c.mu.Unlock()

		if current {
			return snap
		}
		return resultSnapshot[T](r)
	}
}

// resultSnapshot builds a snapshot straight from a load result; used when the
// entry was cleared while the caller waited.
func resultSnapshot[T any](r singleflight.Result) Snapshot[T] {
	if r.Err != nil {
		return Snapshot[T]{Status: StatusError, Err: r.Err}
	}
	v, ok := r.Val.(T)
	if !ok {
		return Snapshot[T]{Status: StatusError, Err: errors.New("cache: unexpected value type")}
	}
	return Snapshot[T]{Status: StatusSuccess, Data: v, HasData: true}
}
