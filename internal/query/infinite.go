package query

import (
	"context"
	"sync/atomic"
	"time"
)

// Page is one chunk of a paginated result.
type Page[T any] struct {
	Items   []T
	HasMore bool
	Next    int // page parameter of the following page when HasMore
}

// Pages is the data stored for a paginated entry: every page loaded so far,
// in order, with the parameter each was fetched with.
type Pages[T any] struct {
	Pages  []Page[T]
	Params []int
}

// Items flattens the loaded pages.
func (p Pages[T]) Items() []T {
	n := 0
	for _, page := range p.Pages {
		n += len(page.Items)
	}
	out := make([]T, 0, n)
	for _, page := range p.Pages {
		out = append(out, page.Items...)
	}
	return out
}

// HasNextPage reports whether the last loaded page announced another one.
func (p Pages[T]) HasNextPage() bool {
	if len(p.Pages) == 0 {
		return false
	}
	return p.Pages[len(p.Pages)-1].HasMore
}

// PageFetchFunc loads the page identified by pageParam.
type PageFetchFunc[T any] func(ctx context.Context, pageParam int) (Page[T], error)

// InfiniteOptions configure an Infinite query.
type InfiniteOptions struct {
	InitialPage int
	StaleTime   time.Duration
}

// InfiniteResult is the typed view of a paginated entry.
type InfiniteResult[T any] struct {
	Pages[T]
	Status             Status
	Err                error
	FetchedAt          time.Time
	IsFetchingNextPage bool
}

// IsLoading reports a first load with nothing to show yet.
func (r InfiniteResult[T]) IsLoading() bool {
	return r.Status == StatusPending && len(r.Pages.Pages) == 0
}

// IsError reports whether the last fetch failed.
func (r InfiniteResult[T]) IsError() bool {
	return r.Status == StatusError
}

// Infinite is a paginated query whose pages accumulate under one key.
type Infinite[T any] struct {
	cache        *Cache
	key          Key
	fetch        PageFetchFunc[T]
	opts         InfiniteOptions
	fetchingNext atomic.Bool
}

// NewInfinite builds a paginated query stored under key.
func NewInfinite[T any](c *Cache, key Key, fetch PageFetchFunc[T], opts InfiniteOptions) *Infinite[T] {
	return &Infinite[T]{cache: c, key: key, fetch: fetch, opts: opts}
}

// Key returns the cache key of the query.
func (q *Infinite[T]) Key() Key {
	return q.key
}

// Result returns the pages loaded so far without fetching.
func (q *Infinite[T]) Result() InfiniteResult[T] {
	return q.resultOf(q.cache.Peek(q.key))
}

// Subscribe calls fn after every state change of the query.
func (q *Infinite[T]) Subscribe(fn func()) func() {
	return q.cache.Subscribe(q.key, fn)
}

// FetchNextPage loads the page after the last one and appends it. The first
// call loads the initial page. Nothing is fetched once the last page reports
// no successor.
func (q *Infinite[T]) FetchNextPage(ctx context.Context) InfiniteResult[T] {
	if cur := q.Result(); len(cur.Pages.Pages) > 0 && !cur.HasNextPage() {
		return cur
	}

	q.fetchingNext.Store(true)
	defer q.fetchingNext.Store(false)

	st := q.cache.load(ctx, q.key, func(ctx context.Context, prev EntryState) (any, error) {
		pages, _ := prev.Data.(Pages[T])
		param := q.opts.InitialPage
		if n := len(pages.Pages); n > 0 {
			last := pages.Pages[n-1]
			if !last.HasMore {
				return pages, nil
			}
			param = last.Next
		}

		page, err := q.fetch(ctx, param)
		if err != nil {
			return nil, err
		}
		next := Pages[T]{
			Pages:  make([]Page[T], 0, len(pages.Pages)+1),
			Params: make([]int, 0, len(pages.Params)+1),
		}
		next.Pages = append(append(next.Pages, pages.Pages...), page)
		next.Params = append(append(next.Params, pages.Params...), param)
		return next, nil
	}, loadOptions{force: true, span: "query.fetch_next_page"})

	return q.resultOf(st)
}

// Load returns the cached pages while fresh. Once stale or invalidated it
// refetches every loaded page in order (at least the initial one) and
// replaces them.
func (q *Infinite[T]) Load(ctx context.Context) InfiniteResult[T] {
	st := q.cache.load(ctx, q.key, func(ctx context.Context, prev EntryState) (any, error) {
		pages, _ := prev.Data.(Pages[T])
		want := max(len(pages.Pages), 1)

		var out Pages[T]
		param := q.opts.InitialPage
		for i := 0; i < want; i++ {
			page, err := q.fetch(ctx, param)
			if err != nil {
				return nil, err
			}
			out.Pages = append(out.Pages, page)
			out.Params = append(out.Params, param)
			if !page.HasMore {
				break
			}
			param = page.Next
		}
		return out, nil
	}, loadOptions{staleTime: q.opts.StaleTime, span: "query.fetch_pages"})

	return q.resultOf(st)
}

// Refetch reloads every loaded page regardless of freshness.
func (q *Infinite[T]) Refetch(ctx context.Context) InfiniteResult[T] {
	q.cache.Invalidate(q.key)
	return q.Load(ctx)
}

func (q *Infinite[T]) resultOf(st EntryState) InfiniteResult[T] {
	pages, _ := st.Data.(Pages[T])
	return InfiniteResult[T]{
		Pages:              pages,
		Status:             st.Status,
		Err:                st.Err,
		FetchedAt:          st.FetchedAt,
		IsFetchingNextPage: q.fetchingNext.Load() && st.Status == StatusPending,
	}
}

// SlicePager pages through a list that the backend only returns whole:
// page p holds items [p*size, p*size+size).
func SlicePager[T any](all func(ctx context.Context) ([]T, error), size int) PageFetchFunc[T] {
	if size < 1 {
		size = 1
	}
	return func(ctx context.Context, page int) (Page[T], error) {
		items, err := all(ctx)
		if err != nil {
			return Page[T]{}, err
		}
		start := min(max(page, 0)*size, len(items))
		end := min(start+size, len(items))
		chunk := make([]T, end-start)
		copy(chunk, items[start:end])
		return Page[T]{Items: chunk, HasMore: end < len(items), Next: page + 1}, nil
	}
}
