package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/config"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
	"github.com/five82/washbook/internal/storage"
)

// fakeBackend is a chi router standing in for the booking API.
type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string]int
	carwashes []api.CarwashSummary
	products  map[int64][]api.Product
	feedback  map[int64][]api.Feedback
	coupons   []api.Coupon

	failFilter   bool
	failLogout   bool
	onLogout     func(refreshToken string)
	bookings     []api.BookingRequest
	reviews      []api.FeedbackRequest
	registration []api.Registration
	userLookups  []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		calls:    map[string]int{},
		products: map[int64][]api.Product{},
		feedback: map[int64][]api.Feedback{},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.calls[req.Method+" "+req.URL.Path]++
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/api/carwashes", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if raw := req.URL.Query().Get("page"); raw != "" {
			page, _ := strconv.Atoi(raw)
			size, _ := strconv.Atoi(req.URL.Query().Get("size"))
			start := min(page*size, len(b.carwashes))
			end := min(start+size, len(b.carwashes))
			writeJSON(w, api.CarwashPage{Items: b.carwashes[start:end], HasMore: end < len(b.carwashes)})
			return
		}
		writeJSON(w, b.carwashes)
	})
	r.Get("/api/carwashes/filter", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failFilter {
			http.Error(w, `{"message":"filter unavailable"}`, http.StatusInternalServerError)
			return
		}
		var out []api.CarwashSummary
		for _, c := range b.carwashes {
			if c.Category == req.URL.Query().Get("category") {
				out = append(out, c)
			}
		}
		writeJSON(w, out)
	})
	r.Get("/api/carwashes/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range b.carwashes {
			if c.ID == id {
				writeJSON(w, c)
				return
			}
		}
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	})
	r.Get("/api/carwashes/{id}/products", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, b.products[id])
	})
	r.Get("/api/feedbacks/carwash/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, b.feedback[id])
	})
	r.Post("/api/feedbacks/add", func(w http.ResponseWriter, req *http.Request) {
		var in api.FeedbackRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		b.mu.Lock()
		b.reviews = append(b.reviews, in)
		b.mu.Unlock()
		writeJSON(w, api.Feedback{ID: 99, Rating: in.Rating, Comment: in.Comment, ImageURLs: in.ImageURLs})
	})
	r.Post("/api/bookings", func(w http.ResponseWriter, req *http.Request) {
		var in api.BookingRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		b.mu.Lock()
		b.bookings = append(b.bookings, in)
		b.mu.Unlock()
		writeJSON(w, api.Booking{BookingID: 501, Status: "PENDING"})
	})
	r.Get("/api/coupon/getAllCouponByClientId/{clientID}", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, b.coupons)
	})
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var creds api.Credentials
		_ = json.NewDecoder(req.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
			return
		}
		writeJSON(w, api.LoginResponse{
			AccessToken:  "access-" + creds.Username,
			RefreshToken: "refresh-" + creds.Username,
			User:         &api.UserInfo{ID: "7", UserName: creds.Username, Role: "CLIENT"},
		})
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		b.mu.Lock()
		hook, fail := b.onLogout, b.failLogout
		b.mu.Unlock()
		if hook != nil {
			hook(body["refreshToken"])
		}
		if fail {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]string{"message": "ok"})
	})
	r.Post("/mail/send-verification", func(w http.ResponseWriter, req *http.Request) {
		var reg api.Registration
		_ = json.NewDecoder(req.Body).Decode(&reg)
		b.mu.Lock()
		b.registration = append(b.registration, reg)
		b.mu.Unlock()
		_, _ = io.WriteString(w, "OTP sent")
	})
	r.Get("/api/user/ClientInformation", func(w http.ResponseWriter, req *http.Request) {
		id := req.URL.Query().Get("userId")
		b.mu.Lock()
		b.userLookups = append(b.userLookups, id)
		b.mu.Unlock()
		writeJSON(w, api.UserInfo{ID: api.ID(id), UserName: "kim", Email: "kim@example.com"})
	})
	r.Post("/api/user/updateClientInformation", func(w http.ResponseWriter, req *http.Request) {
		var info api.UserInfo
		_ = json.NewDecoder(req.Body).Decode(&info)
		writeJSON(w, info)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return b, server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

type harness struct {
	flows   *Flows
	stores  *state.Stores
	cache   *query.Cache
	kv      *storage.Memory
	backend *fakeBackend
}

func newHarness(t *testing.T, tweak func(*Deps)) *harness {
	t.Helper()
	backend, server := newFakeBackend(t)
	kv := storage.NewMemory()
	stores := state.NewStores(kv, state.StaticLocator{Latitude: 10.77, Longitude: 106.70}, nil)
	client, err := api.NewClient(server.URL, api.WithTokenSource(stores.Session.Token))
	require.NoError(t, err)

	cache := query.New()
	deps := Deps{API: client, Cache: cache, Stores: stores}
	if tweak != nil {
		tweak(&deps)
	}
	return &harness{flows: New(deps), stores: stores, cache: cache, kv: kv, backend: backend}
}

func (h *harness) signIn(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, h.stores.Session.SignIn(context.Background(), api.LoginResponse{
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		UserID:       api.ID(userID),
	}))
}

func stations(n int) []api.CarwashSummary {
	out := make([]api.CarwashSummary, n)
	for i := range out {
		out[i] = api.CarwashSummary{ID: int64(i + 1), CarwashName: fmt.Sprintf("Station %02d", i+1)}
	}
	return out
}

func TestAuth_LoginSignsInAndInvalidatesProfile(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	profileKey := query.K("currentUser", "7")
	h.cache.SetData(profileKey, api.UserInfo{ID: "7"})

	resp, err := h.flows.Auth.Login(ctx, api.Credentials{Username: " kim ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "access-kim", resp.AccessToken)

	sess := h.stores.Session.Get()
	assert.True(t, sess.SignedIn())
	assert.Equal(t, "7", sess.UserID)
	assert.False(t, sess.Loading)
	assert.Empty(t, sess.Error)
	assert.True(t, h.cache.Peek(profileKey).Invalidated)

	stored, _, err := h.kv.Get(ctx, storage.Persistent, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-kim", stored)
	assert.Equal(t, query.StatusSuccess, h.flows.Auth.LoginMutation().State().Status)
}

func TestAuth_LoginFailureRecordsMessage(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.flows.Auth.Login(context.Background(), api.Credentials{Username: "kim", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))

	sess := h.stores.Session.Get()
	assert.False(t, sess.SignedIn())
	assert.False(t, sess.Loading)
	assert.Equal(t, "Bad credentials", sess.Error)
	assert.True(t, h.flows.Auth.LoginMutation().IsError())
}

func TestAuth_LogoutClearsLocallyBeforeRevoking(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.signIn(t, "7")
	h.cache.SetData(query.K("currentUser", "7"), api.UserInfo{})
	h.cache.SetData(query.K("coupons", "7"), []api.Coupon{})
	h.cache.SetData(KeyCarwashes, stations(1))

	var revoked string
	var signedInDuringRevoke bool
	var tokenStoredDuringRevoke bool
	h.backend.onLogout = func(refreshToken string) {
		revoked = refreshToken
		signedInDuringRevoke = h.stores.Session.Get().SignedIn()
		_, tokenStoredDuringRevoke, _ = h.kv.Get(ctx, storage.Persistent, storage.KeyAccessToken)
	}

	require.NoError(t, h.flows.Auth.Logout(ctx))
	assert.Equal(t, "refresh-7", revoked)
	assert.False(t, signedInDuringRevoke, "session must be cleared before the request")
	assert.False(t, tokenStoredDuringRevoke, "storage must be cleared before the request")
	assert.False(t, h.cache.Peek(query.K("currentUser", "7")).HasData)
	assert.False(t, h.cache.Peek(query.K("coupons", "7")).HasData)
	assert.True(t, h.cache.Peek(KeyCarwashes).HasData, "public data survives logout")
}

func TestAuth_LogoutIgnoresRevokeFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.failLogout = true
	h.signIn(t, "7")

	require.NoError(t, h.flows.Auth.Logout(context.Background()))
	assert.False(t, h.stores.Session.Get().SignedIn())
	assert.Equal(t, 1, h.backend.count("POST /auth/logout"))
}

func TestAuth_LogoutWithoutRefreshTokenSkipsRequest(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.flows.Auth.Logout(context.Background()))
	assert.Equal(t, 0, h.backend.count("POST /auth/logout"))
}

func TestAuth_Register(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		reg  api.Registration
		want error
	}{
		{name: "short phone", reg: api.Registration{Email: "a@b.c", PhoneNumber: "12345678", Password: "longenough"}, want: ErrInvalidPhone},
		{name: "letters in phone", reg: api.Registration{Email: "a@b.c", PhoneNumber: "09123abc45", Password: "longenough"}, want: ErrInvalidPhone},
		{name: "long phone", reg: api.Registration{Email: "a@b.c", PhoneNumber: "091234567890", Password: "longenough"}, want: ErrInvalidPhone},
		{name: "short password", reg: api.Registration{Email: "a@b.c", PhoneNumber: "0912345678", Password: "short"}, want: ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.flows.Auth.Register(ctx, tt.reg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, h.backend.count("POST /mail/send-verification"))

	assert.ErrorIs(t, h.flows.Auth.ResendVerification(ctx), ErrNoPendingRegistration)

	msg, err := h.flows.Auth.Register(ctx, api.Registration{
		Email: " kim@example.com ", PhoneNumber: "0912345678", Password: "longenough", Role: "ADMIN",
	})
	require.NoError(t, err)
	assert.Equal(t, "OTP sent", msg)
	require.NoError(t, h.flows.Auth.ResendVerification(ctx))

	require.Len(t, h.backend.registration, 2)
	for _, reg := range h.backend.registration {
		assert.Equal(t, "CLIENT", reg.Role)
		assert.Equal(t, "kim@example.com", reg.Email)
	}
}

func TestAuth_ProfileRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res := h.flows.Auth.Profile(ctx)
	assert.False(t, res.HasData)
	assert.Equal(t, query.StatusIdle, res.Status)
	assert.Empty(t, h.backend.userLookups)

	h.signIn(t, "42")
	res = h.flows.Auth.Profile(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, "kim", res.Data.UserName)
	assert.Equal(t, []string{"42"}, h.backend.userLookups)

	updated, err := h.flows.Auth.UpdateProfile(ctx, api.UserInfo{ID: "42", UserName: "kim2"})
	require.NoError(t, err)
	assert.Equal(t, "kim2", updated.UserName)
	assert.Equal(t, "kim2", h.stores.Session.Get().UserInfo.UserName)
	assert.True(t, h.cache.Peek(query.K("currentUser", "42")).Invalidated)
}

func TestCatalog_AllCarwashesCachesAndSeedsDetail(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.carwashes = stations(3)
	ctx := context.Background()

	res := h.flows.Catalog.AllCarwashes(ctx)
	require.NoError(t, res.Err)
	assert.Len(t, res.Data, 3)
	h.flows.Catalog.AllCarwashes(ctx)
	assert.Equal(t, 1, h.backend.count("GET /api/carwashes"))

	detail := h.flows.Catalog.Carwash(ctx, 2)
	require.NoError(t, detail.Err)
	assert.Equal(t, "Station 02", detail.Data.Name())
	assert.Equal(t, 0, h.backend.count("GET /api/carwashes/2"), "detail is served from the seeded entry")

	h.flows.Catalog.RefreshCarwashes(ctx)
	assert.Equal(t, 2, h.backend.count("GET /api/carwashes"))
}

func TestCatalog_SearchPagesClientSide(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.carwashes = stations(25)
	ctx := context.Background()
	search := h.flows.Catalog.Search()

	var sizes []int
	for range 4 {
		res := search.FetchNextPage(ctx)
		require.NoError(t, res.Err)
		sizes = append(sizes, len(res.Items()))
	}
	assert.Equal(t, []int{10, 20, 25, 25}, sizes)
	assert.False(t, search.Result().HasNextPage())
	assert.Equal(t, 1, h.backend.count("GET /api/carwashes"))
}

func TestCatalog_SearchPagesServerSide(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		*d = d.WithConfig(&config.Config{
			Query:  config.Query{CarwashStaleTime: time.Minute},
			Search: config.Search{PageSize: 4, Pagination: config.PaginationServer},
		})
	})
	h.backend.carwashes = stations(6)
	ctx := context.Background()
	search := h.flows.Catalog.Search()

	res := search.FetchNextPage(ctx)
	require.NoError(t, res.Err)
	assert.Len(t, res.Items(), 4)
	assert.True(t, res.HasNextPage())

	res = search.FetchNextPage(ctx)
	assert.Len(t, res.Items(), 6)
	assert.False(t, res.HasNextPage())
	assert.Equal(t, []int{0, 1}, res.Params)
}

func TestCatalog_FilterRecordsResults(t *testing.T) {
	h := newHarness(t, nil)
	all := stations(3)
	all[0].Category = "premium"
	all[2].Category = "premium"
	h.backend.carwashes = all
	ctx := context.Background()

	data, err := h.flows.Catalog.Filter(ctx, api.FilterQuery{Category: "premium"})
	require.NoError(t, err)
	assert.Len(t, data, 2)
	got := h.stores.Filter.Get()
	assert.True(t, got.HasResults)
	assert.Len(t, got.Data, 2)

	h.backend.failFilter = true
	_, err = h.flows.Catalog.Filter(ctx, api.FilterQuery{Category: "premium"})
	require.Error(t, err)
	got = h.stores.Filter.Get()
	assert.False(t, got.HasResults)
	assert.Empty(t, got.Data)
	assert.True(t, h.flows.Catalog.FilterMutation().IsError())
}

func TestCatalog_Nearby(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.carwashes = []api.CarwashSummary{
		{ID: 1, CarwashName: "Far", Latitude: 21.02, Longitude: 105.85},
		{ID: 2, CarwashName: "Unknown"},
		{ID: 3, CarwashName: "Close", Latitude: 10.78, Longitude: 106.70},
	}

	list, err := h.flows.Catalog.Nearby(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Close", "Far", "Unknown"}, []string{list[0].Name(), list[1].Name(), list[2].Name()})
	assert.True(t, list[0].HasDistance)
	assert.Less(t, list[0].DistanceKm, 5.0)
	assert.False(t, list[2].HasDistance)
}

func TestSortByDistance_UnknownLocationSortsByName(t *testing.T) {
	list := []api.CarwashSummary{{CarwashName: "beta"}, {CarwashName: "Alpha"}}
	got := SortByDistance(list, 0, 0, false)
	assert.Equal(t, "Alpha", got[0].Name())
	assert.False(t, got[0].HasDistance)
}

func TestCatalog_FeedbackNewestFirst(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.feedback[1] = []api.Feedback{
		{ID: 1, CreatedAt: "2024-01-01T10:00:00"},
		{ID: 2, CreatedAt: "2024-03-01T10:00:00"},
	}

	res := h.flows.Catalog.Feedback(context.Background(), 1)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(2), res.Data[0].ID)
}

func TestCatalog_CouponsOnlyWhenSignedIn(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.coupons = []api.Coupon{{ID: 5, Name: "Spring"}}
	ctx := context.Background()

	res := h.flows.Catalog.Coupons(ctx)
	assert.False(t, res.HasData)
	assert.Equal(t, 0, h.backend.count("GET /api/coupon/getAllCouponByClientId/7"))

	h.signIn(t, "7")
	res = h.flows.Catalog.Coupons(ctx)
	require.NoError(t, res.Err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 1, h.backend.count("GET /api/coupon/getAllCouponByClientId/7"))
}

func bookingHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, nil)
	h.flows.Booking.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	zero := 0
	h.backend.products[1] = []api.Product{{
		ID:   10,
		Name: "Basic wash",
		Schedules: []api.Schedule{
			{ID: 100, AvailableFrom: "2025-06-01T09:00:00"},
			{ID: 101, AvailableFrom: "2025-06-01T10:00:00", IsActive: api.Bool(false)},
			{ID: 102, AvailableFrom: "2025-06-01T11:00:00", Capacity: &zero},
			{ID: 103, AvailableFrom: "2025-06-01T07:00:00"},
		},
	}}
	h.backend.coupons = []api.Coupon{
		{ID: 5, Name: "Anywhere"},
		{ID: 6, Name: "Elsewhere", Carwash: &api.CarwashSummary{ID: 2}},
	}
	return h
}

func TestBooking_Book(t *testing.T) {
	h := bookingHarness(t)
	ctx := context.Background()

	_, err := h.flows.Booking.Book(ctx, api.BookingRequest{CarwashID: 1, ScheduleID: 100})
	require.ErrorIs(t, err, state.ErrNotSignedIn)

	h.signIn(t, "7")
	h.cache.SetData(KeyBookings, []string{})

	coupon := func(id int64) *int64 { return &id }
	tests := []struct {
		name string
		req  api.BookingRequest
		want error
	}{
		{name: "unknown schedule", req: api.BookingRequest{CarwashID: 1, ScheduleID: 999}, want: ErrUnknownSchedule},
		{name: "inactive", req: api.BookingRequest{CarwashID: 1, ScheduleID: 101}, want: ErrScheduleInactive},
		{name: "full", req: api.BookingRequest{CarwashID: 1, ScheduleID: 102}, want: ErrScheduleFull},
		{name: "started", req: api.BookingRequest{CarwashID: 1, ScheduleID: 103}, want: ErrScheduleStarted},
		{name: "foreign coupon", req: api.BookingRequest{CarwashID: 1, ScheduleID: 100, CouponID: coupon(77)}, want: ErrCouponNotOwned},
		{name: "other station coupon", req: api.BookingRequest{CarwashID: 1, ScheduleID: 100, CouponID: coupon(6)}, want: ErrCouponStation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.flows.Booking.Book(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, h.backend.bookings)

	res, err := h.flows.Booking.Book(ctx, api.BookingRequest{CarwashID: 1, ScheduleID: 100, CouponID: coupon(5), Notes: " red car "})
	require.NoError(t, err)
	assert.Equal(t, int64(501), res.BookingID)

	require.Len(t, h.backend.bookings, 1)
	sent := h.backend.bookings[0]
	assert.Equal(t, "7", sent.ClientID)
	assert.Equal(t, int64(10), sent.ProductID)
	assert.Equal(t, "red car", sent.Notes)
	assert.True(t, h.cache.Peek(KeyProducts(1)).Invalidated)
	assert.True(t, h.cache.Peek(KeyBookings).Invalidated)
}

type recordingUploader struct {
	names []string
}

func (u *recordingUploader) Upload(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	u.names = append(u.names, name)
	return "https://cdn.example.com/" + name, nil
}

func TestBooking_SubmitFeedback(t *testing.T) {
	uploader := &recordingUploader{}
	h := newHarness(t, func(d *Deps) { d.Uploader = uploader })
	ctx := context.Background()
	h.signIn(t, "7")

	_, err := h.flows.Booking.SubmitFeedback(ctx, api.FeedbackRequest{CarwashID: 1, Rating: 6}, nil)
	require.ErrorIs(t, err, ErrInvalidRating)

	dir := t.TempDir()
	local := filepath.Join(dir, "shine.jpg")
	require.NoError(t, os.WriteFile(local, []byte("jpeg"), 0o600))
	h.cache.SetData(KeyFeedback(1), []api.Feedback{})

	fb, err := h.flows.Booking.SubmitFeedback(ctx,
		api.FeedbackRequest{CarwashID: 1, BookingID: 501, Rating: 5, Comment: " great "},
		[]string{local, "https://example.com/already.png"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(99), fb.ID)
	assert.Equal(t, []string{"shine.jpg"}, uploader.names)

	require.Len(t, h.backend.reviews, 1)
	sent := h.backend.reviews[0]
	assert.Equal(t, "7", sent.ClientID)
	assert.Equal(t, "great", sent.Comment)
	assert.Equal(t, []string{"https://cdn.example.com/shine.jpg", "https://example.com/already.png"}, sent.ImageURLs)
	assert.True(t, h.cache.Peek(KeyFeedback(1)).Invalidated)
}

func TestBooking_SubmitFeedbackWithoutUploader(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn(t, "7")
	local := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(local, []byte("png"), 0o600))

	_, err := h.flows.Booking.SubmitFeedback(context.Background(), api.FeedbackRequest{CarwashID: 1, Rating: 4}, []string{local})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disabled"))
	assert.Empty(t, h.backend.reviews)
}

func TestOwner_Dashboard(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.flows.Owner.Dashboard(ctx)
	require.ErrorIs(t, err, state.ErrNotSignedIn)

	h.backend.carwashes = []api.CarwashSummary{
		{ID: 1, CarwashName: "Other", Username: "someone"},
		{ID: 2, CarwashName: "Mine", Username: "owner@example.com"},
	}
	h.backend.products[2] = []api.Product{
		{ID: 20, Pricing: api.Pricing{ID: 1, Price: 50000, Currency: "VND"}, Schedules: []api.Schedule{{ID: 1}, {ID: 2}}},
		{ID: 21, Schedules: []api.Schedule{{ID: 3}}},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "owner@example.com", "role": "OWNER"}).
		SignedString([]byte("test"))
	require.NoError(t, err)
	require.NoError(t, h.stores.Session.SignIn(ctx, api.LoginResponse{AccessToken: token}))

	dash, err := h.flows.Owner.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mine", dash.Carwash.Name())
	assert.Len(t, dash.Products, 2)
	assert.Len(t, dash.Pricing, 1)
	assert.Len(t, dash.Schedules, 3)

	h.backend.carwashes[1].Username = "nobody"
	h.cache.Invalidate(KeyCarwashes)
	_, err = h.flows.Owner.Dashboard(ctx)
	assert.ErrorIs(t, err, ErrNoStation)
}
