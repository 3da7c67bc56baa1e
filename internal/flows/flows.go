package flows

import (
	"log/slog"
	"time"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/config"
	"github.com/five82/washbook/internal/media"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

// Cache keys shared by the flows. Per-station keys start with "carwash" so
// a single Invalidate(KeyCarwash(id)) also refreshes its products and
// feedback.
var (
	KeyCarwashes   = query.K("carwashes")
	KeySearch      = query.K("carwashes", "search")
	KeyCurrentUser = query.K("currentUser")
	KeyCoupons     = query.K("coupons")
	KeyBookings    = query.K("bookings")
)

// KeyCarwash is the key of one station.
func KeyCarwash(id int64) query.Key {
	return query.K("carwash", id)
}

// KeyProducts is the key of a station's products.
func KeyProducts(id int64) query.Key {
	return query.K("carwash", id, "products")
}

// KeyFeedback is the key of a station's reviews.
func KeyFeedback(id int64) query.Key {
	return query.K("carwash", id, "feedback")
}

// Deps are the collaborators shared by every flow.
type Deps struct {
	API      *api.Client
	Cache    *query.Cache
	Stores   *state.Stores
	Uploader media.ImageUploader
	Logger   *slog.Logger

	// CarwashStaleTime is how long station data stays fresh.
	CarwashStaleTime time.Duration
	// PageSize and Pagination configure the search query.
	PageSize   int
	Pagination string
}

// WithConfig fills the tuning fields of Deps from cfg.
func (d Deps) WithConfig(cfg *config.Config) Deps {
	d.CarwashStaleTime = cfg.Query.CarwashStaleTime
	d.PageSize = cfg.Search.PageSize
	d.Pagination = cfg.Search.Pagination
	return d
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Flows bundles the use-cases.
type Flows struct {
	Auth    *Auth
	Catalog *Catalog
	Booking *Booking
	Owner   *Owner
}

// New builds every flow over deps.
func New(deps Deps) *Flows {
	catalog := NewCatalog(deps)
	return &Flows{
		Auth:    NewAuth(deps),
		Catalog: catalog,
		Booking: NewBooking(deps, catalog),
		Owner:   NewOwner(deps, catalog),
	}
}
