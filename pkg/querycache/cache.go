// Package querycache is an observable key/value store for data fetched from
// the server. Subscribers are told about every change to a key, refetches can
// be cancelled so they don't overwrite newer local state, and Mutate applies
// optimistic updates with rollback.
package querycache

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrDiscarded is returned by Fetch when the result was thrown away because
// the fetch was cancelled or superseded by a newer one.
var ErrDiscarded = errors.New("fetch result discarded")

// RefetchError wraps a failed refetch that followed a successful mutation.
type RefetchError struct {
	Err error
}

func (e *RefetchError) Error() string {
	return "refetch: " + e.Err.Error()
}

func (e *RefetchError) Unwrap() error {
	return e.Err
}

// Fetcher loads the current value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

type entry[T any] struct {
	value   T
	ok      bool
	fetcher Fetcher[T]
	gen     uint64
	running *inflight
	subs    map[int]func(T)
}

type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	nextSub int
}

func New[T any]() *Cache[T] {
	return &Cache[T]{entries: map[string]*entry[T]{}}
}

func (c *Cache[T]) entry(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{subs: map[int]func(T){}}
		c.entries[key] = e
	}
	return e
}

// Register sets the fetcher Invalidate uses for key.
func (c *Cache[T]) Register(key string, fetcher Fetcher[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(key).fetcher = fetcher
}

// Subscribe calls fn with the new value every time key changes. The returned
// func removes the subscription.
func (c *Cache[T]) Subscribe(key string, fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.entry(key).subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.entry(key).subs, id)
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, e.ok
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	e := c.entry(key)
	e.value = value
	e.ok = true
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, value)
}

// Update replaces the value for key with fn applied to the current one. fn
// gets the zero value if nothing is cached yet. fn must not modify its
// argument in place.
func (c *Cache[T]) Update(key string, fn func(T) T) {
	c.mu.Lock()
	e := c.entry(key)
	e.value = fn(e.value)
	e.ok = true
	value := e.value
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, value)
}

// Fetch runs fn and stores its result. A fetch already running for key is
// cancelled first. If this fetch is itself cancelled or superseded before it
// finishes, its result is dropped and ErrDiscarded is returned.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fn Fetcher[T]) (T, error) {
	var zero T

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	e := c.entry(key)
	e.cancelRunning()
	e.gen++
	run := &inflight{gen: e.gen, cancel: cancel}
	e.running = run
	c.mu.Unlock()

	value, err := fn(fetchCtx)

	c.mu.Lock()
	if e.running != run || e.gen != run.gen {
		c.mu.Unlock()
		return zero, ErrDiscarded
	}
	e.running = nil
	if err != nil {
		c.mu.Unlock()
		return zero, err
	}
	e.value = value
	e.ok = true
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, value)
	return value, nil
}

// Cancel stops any fetch running for key. Its result will be discarded.
func (c *Cache[T]) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.cancelRunning()
	e.gen++
}

// Invalidate refetches key with its registered fetcher.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) (T, error) {
	c.mu.Lock()
	var fetcher Fetcher[T]
	if e, ok := c.entries[key]; ok {
		fetcher = e.fetcher
	}
	c.mu.Unlock()

	if fetcher == nil {
		var zero T
		return zero, errors.Errorf("no fetcher registered for %q", key)
	}
	return c.Fetch(ctx, key, fetcher)
}

// Mutation describes a write against the server that affects a cached key.
type Mutation[T any] struct {
	// Optimistic, if set, rewrites the cached value before Request runs. It
	// must return a new value rather than modify its argument.
	Optimistic func(T) T
	Request    func(ctx context.Context) error
}

// Mutate runs m against key:
//  1. any running refetch of key is cancelled
//  2. the cached value is snapshotted and m.Optimistic is applied
//  3. m.Request runs, and on failure the snapshot is restored
//  4. key is refetched whether or not the request succeeded
//
// The request error is returned if there is one. Otherwise a failed refetch is
// returned as a *RefetchError.
func (c *Cache[T]) Mutate(ctx context.Context, key string, m Mutation[T]) error {
	if m.Optimistic != nil {
		c.Cancel(key)
	}
	snapshot, hadSnapshot := c.Get(key)

	if m.Optimistic != nil {
		c.Update(key, m.Optimistic)
	}

	reqErr := m.Request(ctx)
	if reqErr != nil && m.Optimistic != nil {
		if hadSnapshot {
			c.Set(key, snapshot)
		} else {
			c.clear(key)
		}
	}

	_, fetchErr := c.Invalidate(ctx, key)
	if errors.Is(fetchErr, ErrDiscarded) {
		fetchErr = nil
	}

	if reqErr != nil {
		return reqErr
	}
	if fetchErr != nil {
		return &RefetchError{Err: fetchErr}
	}
	return nil
}

func (c *Cache[T]) clear(key string) {
	c.mu.Lock()
	e := c.entry(key)
	var zero T
	e.value = zero
	e.ok = false
	subs := e.subscribers()
	c.mu.Unlock()

	notify(subs, zero)
}

func (e *entry[T]) cancelRunning() {
	if e.running != nil {
		e.running.cancel()
		e.running = nil
	}
}

func (e *entry[T]) subscribers() []func(T) {
	subs := make([]func(T), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify[T any](subs []func(T), value T) {
	for _, fn := range subs {
		fn(value)
	}
}
