package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/washbook/internal/store"
)

const tracerName = "github.com/five82/washbook/internal/query"

// Status is the lifecycle position of a cache entry or mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// EntryState is the snapshot held for one key.
type EntryState struct {
	Data        any
	HasData     bool
	Status      Status
	Err         error
	FetchedAt   time.Time
	Invalidated bool
}

// Cache coordinates keyed async fetches: it serves fresh data from memory,
// runs at most one fetch per key at a time, and records every outcome as
// entry state instead of returning errors to callers.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	staleTime time.Duration
}

type entry struct {
	key   Key
	state *store.Store[EntryState]
	call  *call
	gen   uint64 // bumped by Invalidate
}

type call struct {
	done chan struct{}
	gen  uint64
}

// fetchFunc produces new entry data from the state the fetch started with.
type fetchFunc func(ctx context.Context, prev EntryState) (any, error)

// New returns an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key Key) EntryState {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	c.mu.Unlock()
	if !ok {
		return EntryState{}
	}
	return e.state.Get()
}

// Subscribe calls fn after every state change of key. The entry is created
// idle if it does not exist yet.
func (c *Cache) Subscribe(key Key, fn func()) func() {
	c.mu.Lock()
	e := c.entryLocked(key)
	c.mu.Unlock()
	return e.state.Subscribe(fn)
}

// SetData stores data for key as a fresh successful result.
func (c *Cache) SetData(key Key, data any) {
	c.mu.Lock()
	e := c.entryLocked(key)
	now := c.now()
	notify := e.state.Stage(func(EntryState) EntryState {
		return EntryState{Data: data, HasData: true, Status: StatusSuccess, FetchedAt: now}
	})
	c.mu.Unlock()
	notify()
}

// Invalidate marks every entry whose key starts with prefix as stale so the
// next query for it refetches. It returns the number of entries marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	var notify []func()
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.gen++
		notify = append(notify, e.state.Stage(func(s EntryState) EntryState {
			s.Invalidated = true
			return s
		}))
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	c.metrics.observeInvalidations(len(notify))
	c.logger.Debug("query invalidated", slog.String("prefix", prefix.String()), slog.Int("entries", len(notify)))
	return len(notify)
}

// Remove drops every entry whose key starts with prefix. Subscribers of a
// removed entry observe a reset to idle.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	var notify []func()
	for id, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		delete(c.entries, id)
		notify = append(notify, e.state.Stage(func(EntryState) EntryState { return EntryState{} }))
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return len(notify)
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key, state: store.New(EntryState{})}
		c.entries[id] = e
	}
	return e
}

func (c *Cache) fresh(st EntryState, staleTime time.Duration) bool {
	if st.Status != StatusSuccess || st.Invalidated {
		return false
	}
	if staleTime == 0 {
		staleTime = c.staleTime
	}
	if staleTime <= 0 {
		return false
	}
	return c.now().Sub(st.FetchedAt) < staleTime
}

// load is the single entry point for every fetch the cache performs.
func (c *Cache) load(ctx context.Context, key Key, fn fetchFunc, opts loadOptions) EntryState {
	c.mu.Lock()
	e := c.entryLocked(key)

	if opts.disabled {
		c.mu.Unlock()
		return e.state.Get()
	}

	if cl := e.call; cl != nil {
		c.mu.Unlock()
		c.metrics.observeDedup(key)
		return wait(ctx, e, cl)
	}

	prev := e.state.Get()
	if !opts.force && c.fresh(prev, opts.staleTime) {
		c.mu.Unlock()
		c.metrics.observeHit(key)
		return prev
	}

	cl := &call{done: make(chan struct{}), gen: e.gen}
	e.call = cl
	notify := e.state.Stage(func(s EntryState) EntryState {
		s.Status = StatusPending
		return s
	})
	c.mu.Unlock()
	notify()

	go c.run(context.WithoutCancel(ctx), e, cl, fn, prev, opts.span)

	if opts.background && prev.HasData {
		return e.state.Get()
	}
	return wait(ctx, e, cl)
}

func wait(ctx context.Context, e *entry, cl *call) EntryState {
	select {
	case <-cl.done:
	case <-ctx.Done():
	}
	return e.state.Get()
}

func (c *Cache) run(ctx context.Context, e *entry, cl *call, fn fetchFunc, prev EntryState, spanName string) {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("query.key", e.key.String()),
	))
	c.logger.Debug("query fetch started", slog.String("key", e.key.String()))

	start := time.Now()
	data, err := safeFetch(ctx, fn, prev)
	c.metrics.observeFetch(e.key, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("query fetch failed", slog.String("key", e.key.String()), slog.String("error", err.Error()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	c.mu.Lock()
	invalidated := e.gen != cl.gen
	now := c.now()
	notify := e.state.Stage(func(s EntryState) EntryState {
		if err != nil {
			s.Status = StatusError
			s.Err = err
			return s
		}
		return EntryState{
			Data:        data,
			HasData:     true,
			Status:      StatusSuccess,
			FetchedAt:   now,
			Invalidated: invalidated,
		}
	})
	e.call = nil
	c.mu.Unlock()

	close(cl.done)
	notify()
}

func safeFetch(ctx context.Context, fn fetchFunc, prev EntryState) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return fn(ctx, prev)
}
