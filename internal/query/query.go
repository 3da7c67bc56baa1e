package query

import (
	"context"
	"time"
)

// FetchFunc loads the data for one key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result is the typed view of an entry returned by Query.
type Result[T any] struct {
	Data      T
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time

	refetch func(context.Context) Result[T]
}

// IsLoading reports a first load: a fetch is running and there is no data
// to show yet.
func (r Result[T]) IsLoading() bool {
	return r.Status == StatusPending && !r.HasData
}

// IsFetching reports whether a fetch is running, including background
// refreshes of data already present.
func (r Result[T]) IsFetching() bool {
	return r.Status == StatusPending
}

// IsError reports whether the last fetch failed.
func (r Result[T]) IsError() bool {
	return r.Status == StatusError
}

// Refetch fetches again regardless of freshness. A fetch already running
// for the key is joined rather than duplicated.
func (r Result[T]) Refetch(ctx context.Context) Result[T] {
	if r.refetch == nil {
		return r
	}
	return r.refetch(ctx)
}

// Query returns the data for key, fetching it with fetch when the entry is
// missing, stale or invalidated. Concurrent calls for the same key share a
// single fetch. Failures are recorded in the returned Result; the previous
// data is kept when a refetch fails.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch FetchFunc[T], opts QueryOptions) Result[T] {
	return query(ctx, c, key, fetch, opts, false)
}

func query[T any](ctx context.Context, c *Cache, key Key, fetch FetchFunc[T], opts QueryOptions, force bool) Result[T] {
	fn := func(ctx context.Context, _ EntryState) (any, error) {
		return fetch(ctx)
	}
	st := c.load(ctx, key, fn, opts.load(force))

	res := resultOf[T](st)
	res.refetch = func(ctx context.Context) Result[T] {
		manual := opts
		manual.Disabled = false
		manual.Background = false
		return query(ctx, c, key, fetch, manual, true)
	}
	return res
}

// GetData returns the cached data for key if present and of type T.
func GetData[T any](c *Cache, key Key) (T, bool) {
	st := c.Peek(key)
	data, ok := st.Data.(T)
	return data, ok && st.HasData
}

func resultOf[T any](st EntryState) Result[T] {
	data, ok := st.Data.(T)
	return Result[T]{
		Data:      data,
		HasData:   ok && st.HasData,
		Status:    st.Status,
		Err:       st.Err,
		FetchedAt: st.FetchedAt,
	}
}
