// Package query caches the results of keyed asynchronous fetches.
//
// # Overview
//
// Every piece of server data the client shows (carwash lists, products,
// feedback, coupons, the dashboard) is read through a Cache. An entry is
// addressed by a Key, an ordered tuple of primitive values such as
// K("carwash", 7, "products"), and holds the last result together with its
// status and fetch time.
//
//	Query(ctx, c, key, fetch, opts)
//	        │
//	        ├─ fetch in flight for key? ──→ wait for it (deduplicated)
//	        ├─ fresh success?           ──→ return cached state
//	        └─ otherwise                ──→ mark pending, fetch, record outcome
//
// # Freshness
//
// A successful result is fresh for StaleTime after it was fetched. Zero uses
// the cache default set with WithDefaultStaleTime; a negative value means
// every call refetches. Invalidate marks all entries under a key prefix as
// stale without dropping their data, so screens keep showing the old values
// while the next query refetches.
//
// # Errors
//
// Fetch errors never escape as Go errors from Query. They are recorded on the
// entry (Status StatusError, Err set) and the previous data is kept, which
// lets a list stay visible when a refresh fails. A panicking fetch is
// recovered and recorded the same way.
//
// # Mutations
//
// Mutation wraps a one-shot write with lifecycle callbacks:
//
//	OnMutate ─→ fn ─┬─ ok  ─→ OnSuccess ─┐
//	                └─ err ─→ rollback ─→ OnError ─┴─→ OnSettled
//
// OnMutate may apply an optimistic change and return its rollback. OnError
// runs after the rollback, so a value it writes (for example a fallback
// location) is what remains.
//
// # Pagination
//
// Infinite accumulates pages under one key. FetchNextPage appends the page
// after the last one and stops once a page reports HasMore false. Load
// refetches every loaded page when the entry is stale. SlicePager adapts an
// endpoint that returns a whole list into fixed-size pages.
//
// # Subscriptions
//
// Each entry is backed by a store.Store, so Subscribe follows the store's
// notification rules: one call per state change, in order, outside any lock.
//
// # Observability
//
// WithMetrics attaches Prometheus counters and histograms labelled by the
// key's first element. Every fetch and mutation also opens an OpenTelemetry
// span on the configured tracer (the global provider by default).
package query
