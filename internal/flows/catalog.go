package flows

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/config"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

const (
	defaultCarwashStaleTime = 5 * time.Minute
	defaultPageSize         = 10
	mutationFilter          = "filter_carwashes"
)

// Catalog reads stations, their products and reviews.
type Catalog struct {
	api      *api.Client
	cache    *query.Cache
	session  *state.SessionStore
	location *state.LocationStore
	filter   *state.FilterStore
	logger   *slog.Logger

	staleTime time.Duration
	search    *query.Infinite[api.CarwashSummary]
	filterMut *query.Mutation[api.FilterQuery, []api.CarwashSummary]
}

// NewCatalog builds the catalog flow. Search pages come from the full
// station list unless deps.Pagination selects server-side paging.
func NewCatalog(deps Deps) *Catalog {
	c := &Catalog{
		api:       deps.API,
		cache:     deps.Cache,
		session:   deps.Stores.Session,
		location:  deps.Stores.Location,
		filter:    deps.Stores.Filter,
		logger:    deps.logger(),
		staleTime: deps.CarwashStaleTime,
	}
	if c.staleTime == 0 {
		c.staleTime = defaultCarwashStaleTime
	}

	size := deps.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	var pages query.PageFetchFunc[api.CarwashSummary]
	if deps.Pagination == config.PaginationServer {
		pages = c.serverPages(size)
	} else {
		pages = query.SlicePager(c.allOrStale, size)
	}
	c.search = query.NewInfinite(deps.Cache, KeySearch, pages, query.InfiniteOptions{StaleTime: c.staleTime})

	c.filterMut = query.NewMutation(deps.Cache, deps.API.FilterCarwashes, query.MutationOptions[api.FilterQuery, []api.CarwashSummary]{
		Name: mutationFilter,
		OnSuccess: func(data []api.CarwashSummary, _ api.FilterQuery) {
			c.filter.SetResults(data)
		},
		OnError: func(err error, _ api.FilterQuery) {
			c.logger.Warn("filter failed", slog.String("error", err.Error()))
			c.filter.Clear()
		},
	})
	return c
}

// AllCarwashes returns every station. Each row also seeds the station's
// own entry so opening a detail view needs no request.
func (c *Catalog) AllCarwashes(ctx context.Context) query.Result[[]api.CarwashSummary] {
	return query.Query(ctx, c.cache, KeyCarwashes, c.fetchAll, query.QueryOptions{StaleTime: c.staleTime})
}

// RefreshCarwashes marks the station list stale and loads it again.
func (c *Catalog) RefreshCarwashes(ctx context.Context) query.Result[[]api.CarwashSummary] {
	c.cache.Invalidate(KeyCarwashes)
	return c.AllCarwashes(ctx)
}

func (c *Catalog) fetchAll(ctx context.Context) ([]api.CarwashSummary, error) {
	list, err := c.api.ListCarwashes(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range list {
		c.cache.SetData(KeyCarwash(row.ID), row)
	}
	return list, nil
}

// allOrStale serves the last good list when a refresh fails.
func (c *Catalog) allOrStale(ctx context.Context) ([]api.CarwashSummary, error) {
	res := c.AllCarwashes(ctx)
	if res.Err != nil && !res.HasData {
		return nil, res.Err
	}
	return res.Data, nil
}

func (c *Catalog) serverPages(size int) query.PageFetchFunc[api.CarwashSummary] {
	return func(ctx context.Context, page int) (query.Page[api.CarwashSummary], error) {
		p, err := c.api.ListCarwashesPage(ctx, page, size)
		if err != nil {
			return query.Page[api.CarwashSummary]{}, err
		}
		return query.Page[api.CarwashSummary]{Items: p.Items, HasMore: p.HasMore, Next: page + 1}, nil
	}
}

// Carwash returns one station.
func (c *Catalog) Carwash(ctx context.Context, id int64) query.Result[api.CarwashSummary] {
	fetch := func(ctx context.Context) (api.CarwashSummary, error) {
		return c.api.GetCarwash(ctx, id)
	}
	return query.Query(ctx, c.cache, KeyCarwash(id), fetch, query.QueryOptions{StaleTime: c.staleTime})
}

// Products returns a station's products with pricing and schedules.
func (c *Catalog) Products(ctx context.Context, id int64) query.Result[[]api.Product] {
	fetch := func(ctx context.Context) ([]api.Product, error) {
		return c.api.ListProducts(ctx, id)
	}
	return query.Query(ctx, c.cache, KeyProducts(id), fetch, query.QueryOptions{})
}

// Feedback returns a station's reviews, newest first.
func (c *Catalog) Feedback(ctx context.Context, id int64) query.Result[[]api.Feedback] {
	fetch := func(ctx context.Context) ([]api.Feedback, error) {
		list, err := c.api.ListFeedback(ctx, id)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(list, func(a, b api.Feedback) int {
			return b.Created().Compare(a.Created())
		})
		return list, nil
	}
	return query.Query(ctx, c.cache, KeyFeedback(id), fetch, query.QueryOptions{})
}

// Search is the paged station list shown by the UI.
func (c *Catalog) Search() *query.Infinite[api.CarwashSummary] {
	return c.search
}

// Nearby is a station with its distance from the user.
type Nearby struct {
	api.CarwashSummary
	DistanceKm  float64
	HasDistance bool
}

// Nearby returns every station ordered by distance from the user's
// location. It looks the location up first if none is known. Stations
// without coordinates, or all of them when the location is unknown, follow
// in name order.
func (c *Catalog) Nearby(ctx context.Context) ([]Nearby, error) {
	res := c.AllCarwashes(ctx)
	if res.Err != nil && !res.HasData {
		return nil, res.Err
	}
	c.location.EnsureLocation(ctx)
	lat, lon, ok := c.location.Get().Coordinates()
	return SortByDistance(res.Data, lat, lon, ok), nil
}

// SortByDistance orders list by distance from lat/lon when known is true,
// otherwise by name.
func SortByDistance(list []api.CarwashSummary, lat, lon float64, known bool) []Nearby {
	out := make([]Nearby, 0, len(list))
	for _, row := range list {
		n := Nearby{CarwashSummary: row}
		if known && row.HasLocation() {
			n.DistanceKm = state.Distance(lat, lon, float64(row.Latitude), float64(row.Longitude))
			n.HasDistance = true
		}
		out = append(out, n)
	}
	slices.SortStableFunc(out, func(a, b Nearby) int {
		switch {
		case a.HasDistance && b.HasDistance:
			return cmp.Compare(a.DistanceKm, b.DistanceKm)
		case a.HasDistance:
			return -1
		case b.HasDistance:
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})
	return out
}

// FilterMutation exposes the filter mutation state for the UI.
func (c *Catalog) FilterMutation() *query.Mutation[api.FilterQuery, []api.CarwashSummary] {
	return c.filterMut
}

// Filter narrows stations by q and records the outcome in the filter
// store. A failure leaves an empty result rather than the previous one.
func (c *Catalog) Filter(ctx context.Context, q api.FilterQuery) ([]api.CarwashSummary, error) {
	if q.Latitude == 0 && q.Longitude == 0 {
		if lat, lon, ok := c.location.Get().Coordinates(); ok {
			q.Latitude, q.Longitude = lat, lon
		}
	}
	return c.filterMut.MutateAsync(ctx, q)
}

// Coupons returns the signed-in client's coupons. It does not fetch while
// signed out.
func (c *Catalog) Coupons(ctx context.Context) query.Result[[]api.Coupon] {
	userID, err := c.session.UserID()
	if err != nil {
		return query.Query[[]api.Coupon](ctx, c.cache, KeyCoupons, nil, query.QueryOptions{Disabled: true})
	}
	fetch := func(ctx context.Context) ([]api.Coupon, error) {
		return c.api.ListCoupons(ctx, userID)
	}
	return query.Query(ctx, c.cache, query.K("coupons", userID), fetch, query.QueryOptions{})
}
