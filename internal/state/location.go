package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/five82/washbook/internal/storage"
	"github.com/five82/washbook/internal/store"
)

// ErrLocationUnsupported is returned by a Locator that cannot provide a
// position.
var ErrLocationUnsupported = errors.New("geolocation is not supported")

const (
	msgUnsupported  = "Geolocation is not supported"
	msgLookupFailed = "Unable to retrieve location: "
)

// Location is the user's position. Both coordinates are nil until known.
type Location struct {
	Latitude  *float64
	Longitude *float64
	Error     string
	IsLoading bool
}

// Coordinates returns the position when both coordinates are known.
func (l Location) Coordinates() (lat, lon float64, ok bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// Locator reports the device position.
type Locator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

// LocationStore tracks the user's position. A manual override saved in
// session storage takes precedence over the Locator.
type LocationStore struct {
	*store.Store[Location]
	kv      storage.KV
	locator Locator
	logger  *slog.Logger
}

// NewLocationStore returns a store with no position. locator may be nil.
func NewLocationStore(kv storage.KV, locator Locator, logger *slog.Logger) *LocationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationStore{Store: store.New(Location{}), kv: kv, locator: locator, logger: logger}
}

func ptr(v float64) *float64 {
	return &v
}

// SetManualLocation saves a user-confirmed position and adopts it.
func (l *LocationStore) SetManualLocation(ctx context.Context, coords [2]float64) error {
	if err := storage.SetJSON(ctx, l.kv, storage.Session, storage.KeyManualLocation, coords); err != nil {
		return fmt.Errorf("save manual location: %w", err)
	}
	l.Set(Location{Latitude: ptr(coords[0]), Longitude: ptr(coords[1])})
	return nil
}

// ManualLocation returns the saved override. Overrides with a zero
// coordinate are ignored.
func (l *LocationStore) ManualLocation(ctx context.Context) ([2]float64, bool) {
	var coords [2]float64
	ok, err := storage.GetJSON(ctx, l.kv, storage.Session, storage.KeyManualLocation, &coords)
	if err != nil {
		l.logger.Warn("manual location unreadable", slog.String("error", err.Error()))
		return coords, false
	}
	return coords, ok && coords[0] != 0 && coords[1] != 0
}

// CurrentLocation looks the position up again: the manual override if one
// is saved, otherwise the Locator. A failed lookup keeps the previous
// coordinates and records the error.
func (l *LocationStore) CurrentLocation(ctx context.Context) {
	l.Update(func(s Location) Location {
		s.IsLoading = true
		s.Error = ""
		return s
	})
	l.resolve(ctx)
}

// EnsureLocation runs a lookup only when no position is known and none is
// in progress. It reports whether a lookup ran.
func (l *LocationStore) EnsureLocation(ctx context.Context) bool {
	claimed := false
	l.Update(func(s Location) Location {
		if s.Latitude != nil || s.IsLoading {
			return s
		}
		claimed = true
		s.IsLoading = true
		s.Error = ""
		return s
	})
	if claimed {
		l.resolve(ctx)
	}
	return claimed
}

func (l *LocationStore) resolve(ctx context.Context) {
	if coords, ok := l.ManualLocation(ctx); ok {
		l.Set(Location{Latitude: ptr(coords[0]), Longitude: ptr(coords[1])})
		return
	}

	if l.locator == nil {
		l.fail(msgUnsupported)
		return
	}
	lat, lon, err := l.locator.Locate(ctx)
	switch {
	case errors.Is(err, ErrLocationUnsupported):
		l.fail(msgUnsupported)
	case err != nil:
		l.logger.Warn("location lookup failed", slog.String("error", err.Error()))
		l.fail(msgLookupFailed + err.Error())
	default:
		l.Set(Location{Latitude: ptr(lat), Longitude: ptr(lon)})
	}
}

func (l *LocationStore) fail(msg string) {
	l.Update(func(s Location) Location {
		s.Error = msg
		s.IsLoading = false
		return s
	})
}

// StaticLocator always reports the same position.
type StaticLocator struct {
	Latitude  float64
	Longitude float64
}

func (s StaticLocator) Locate(context.Context) (float64, float64, error) {
	return s.Latitude, s.Longitude, nil
}

// IPLocator asks an HTTP endpoint for the position of the caller's IP. The
// endpoint must answer with JSON containing lat/lon or latitude/longitude.
type IPLocator struct {
	URL    string
	Client *http.Client
}

// NewIPLocator returns an IPLocator for url with a short timeout.
func NewIPLocator(url string) *IPLocator {
	return &IPLocator{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (l *IPLocator) Locate(ctx context.Context) (float64, float64, error) {
	if l == nil || strings.TrimSpace(l.URL) == "" {
		return 0, 0, ErrLocationUnsupported
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return 0, 0, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var payload struct {
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode response: %w", err)
	}
	lat, lon := payload.Lat, payload.Lon
	if lat == nil || lon == nil {
		lat, lon = payload.Latitude, payload.Longitude
	}
	if lat == nil || lon == nil {
		return 0, 0, fmt.Errorf("lookup response has no coordinates")
	}
	return *lat, *lon, nil
}
