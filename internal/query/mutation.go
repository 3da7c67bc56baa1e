package query

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/washbook/internal/store"
)

// MutateFunc performs a one-shot write against the backend.
type MutateFunc[V, R any] func(ctx context.Context, vars V) (R, error)

// MutationOptions hold the lifecycle callbacks of a Mutation. All of them
// are optional.
type MutationOptions[V, R any] struct {
	// Name labels metrics and spans.
	Name string

	// OnMutate runs before the mutation. The returned function, if any,
	// undoes its optimistic changes and runs when the mutation fails.
	OnMutate func(vars V) (rollback func())

	// OnSuccess runs after a successful mutation.
	OnSuccess func(result R, vars V)

	// OnError runs after a failed mutation, once the rollback has been
	// applied. State written here is kept, which is how a fallback value
	// replaces the rolled-back one.
	OnError func(err error, vars V)

	// OnSettled runs last, whatever the outcome.
	OnSettled func(result R, err error, vars V)
}

// MutationState is the observable state of a Mutation.
type MutationState[R any] struct {
	Status  Status
	Data    R
	Err     error
	Pending int // calls not yet settled
}

// IsLoading reports whether any call is still running.
func (s MutationState[R]) IsLoading() bool {
	return s.Pending > 0
}

// IsError reports whether the latest settled call failed.
func (s MutationState[R]) IsError() bool {
	return s.Status == StatusError
}

// Mutation runs a write once per call. Unlike queries, calls are never
// cached or deduplicated.
type Mutation[V, R any] struct {
	fn      MutateFunc[V, R]
	opts    MutationOptions[V, R]
	state   *store.Store[MutationState[R]]
	metrics *Metrics
	tracer  trace.Tracer
}

// NewMutation builds a Mutation. c supplies metrics and tracing and may be
// nil.
func NewMutation[V, R any](c *Cache, fn MutateFunc[V, R], opts MutationOptions[V, R]) *Mutation[V, R] {
	m := &Mutation[V, R]{
		fn:     fn,
		opts:   opts,
		state:  store.New(MutationState[R]{}),
		tracer: otel.Tracer(tracerName),
	}
	if c != nil {
		m.metrics = c.metrics
		m.tracer = c.tracer
	}
	if m.opts.Name == "" {
		m.opts.Name = "mutation"
	}
	return m
}

// MutateAsync runs the mutation and returns its outcome. The error is also
// recorded in State.
func (m *Mutation[V, R]) MutateAsync(ctx context.Context, vars V) (result R, err error) {
	m.state.Update(func(s MutationState[R]) MutationState[R] {
		s.Pending++
		s.Status = StatusPending
		return s
	})
	settled := false
	defer func() {
		// Keep Pending balanced if a callback panics.
		if !settled {
			m.state.Update(func(s MutationState[R]) MutationState[R] {
				s.Pending--
				return s
			})
		}
	}()

	var rollback func()
	if m.opts.OnMutate != nil {
		rollback = m.opts.OnMutate(vars)
	}

	ctx, span := m.tracer.Start(ctx, "mutation."+m.opts.Name, trace.WithAttributes(
		attribute.String("mutation.name", m.opts.Name),
	))
	start := time.Now()
	result, err = safeMutate(ctx, m.fn, vars)
	m.metrics.observeMutation(m.opts.Name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if err != nil {
		if rollback != nil {
			rollback()
		}
		if m.opts.OnError != nil {
			m.opts.OnError(err, vars)
		}
	} else if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(result, vars)
	}
	if m.opts.OnSettled != nil {
		m.opts.OnSettled(result, err, vars)
	}

	settled = true
	m.state.Update(func(s MutationState[R]) MutationState[R] {
		s.Pending--
		if err != nil {
			s.Status = StatusError
			s.Err = err
		} else {
			s.Status = StatusSuccess
			s.Data = result
			s.Err = nil
		}
		return s
	})
	return result, err
}

// Mutate runs the mutation and leaves the outcome in State only.
func (m *Mutation[V, R]) Mutate(ctx context.Context, vars V) {
	_, _ = m.MutateAsync(ctx, vars)
}

// State returns the current mutation state.
func (m *Mutation[V, R]) State() MutationState[R] {
	return m.state.Get()
}

// IsLoading reports whether any call is still running.
func (m *Mutation[V, R]) IsLoading() bool {
	return m.state.Get().IsLoading()
}

// IsError reports whether the latest settled call failed.
func (m *Mutation[V, R]) IsError() bool {
	return m.state.Get().IsError()
}

// Subscribe calls fn after every state change.
func (m *Mutation[V, R]) Subscribe(fn func()) func() {
	return m.state.Subscribe(fn)
}

// Reset clears the settled result. Calls still running keep counting.
func (m *Mutation[V, R]) Reset() {
	m.state.Update(func(s MutationState[R]) MutationState[R] {
		return MutationState[R]{Pending: s.Pending, Status: idleOrPending(s.Pending > 0)}
	})
}

func idleOrPending(pending bool) Status {
	if pending {
		return StatusPending
	}
	return StatusIdle
}

func safeMutate[V, R any](ctx context.Context, fn MutateFunc[V, R], vars V) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()
	return fn(ctx, vars)
}
