package state

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/storage"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return token
}

func TestSessionStore_SignInPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := NewSessionStore(kv)

	var notified int
	s.Subscribe(func() { notified++ })

	err := s.SignIn(ctx, api.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &api.UserInfo{ID: "7", UserName: "kim", Role: "CLIENT"},
	})
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("notifications = %d, want 1", notified)
	}

	cur := s.Get()
	if !cur.SignedIn() || cur.UserID != "7" || cur.DisplayName() != "kim" {
		t.Fatalf("session = %+v, want signed in as kim (7)", cur)
	}
	if s.Token() != "access" {
		t.Fatalf("Token() = %q, want access", s.Token())
	}
	for key, want := range map[string]string{
		storage.KeyAccessToken:  "access",
		storage.KeyRefreshToken: "refresh",
		storage.KeyUserID:       "7",
	} {
		if got, _, _ := kv.Get(ctx, storage.Persistent, key); got != want {
			t.Fatalf("stored %s = %q, want %q", key, got, want)
		}
	}

	restored := NewSessionStore(kv)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	got := restored.Get()
	if got.AccessToken != "access" || got.UserID != "7" || got.UserInfo == nil || got.UserInfo.UserName != "kim" {
		t.Fatalf("restored session = %+v", got)
	}
	if !restored.HasRole("client") || restored.HasRole("OWNER") {
		t.Fatal("HasRole mismatch for CLIENT user")
	}
}

func TestSessionStore_RestoreDerivesUserIDFromToken(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	token := signedToken(t, jwt.MapClaims{"sub": "owner@example.com", "userId": "u-3", "role": "OWNER"})
	if err := kv.Set(ctx, storage.Persistent, storage.KeyAccessToken, token); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s := NewSessionStore(kv)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	id, err := s.UserID()
	if err != nil || id != "u-3" {
		t.Fatalf("UserID() = %q, %v; want u-3", id, err)
	}
	if !s.HasRole("OWNER") {
		t.Fatal("HasRole(OWNER) = false, want role from token claims")
	}
}

func TestSessionStore_SignOutClearsEverything(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := NewSessionStore(kv)
	if err := s.SignIn(ctx, api.LoginResponse{AccessToken: "a", RefreshToken: "r", UserID: "9"}); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if rt, _ := s.RefreshToken(ctx); rt != "r" {
		t.Fatalf("RefreshToken = %q, want r", rt)
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if s.Get().SignedIn() || s.Get().DisplayName() != "guest" {
		t.Fatalf("session after sign out = %+v", s.Get())
	}
	if _, err := s.UserID(); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("UserID error = %v, want ErrNotSignedIn", err)
	}
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserID, storage.KeyUserInfo} {
		if _, ok, _ := kv.Get(ctx, storage.Persistent, key); ok {
			t.Fatalf("%s still stored after sign out", key)
		}
	}
	if s.HasRole("CLIENT") {
		t.Fatal("HasRole = true after sign out")
	}
}

type fakeLocator struct {
	lat, lon float64
	err      error
	calls    int
}

func (f *fakeLocator) Locate(context.Context) (float64, float64, error) {
	f.calls++
	return f.lat, f.lon, f.err
}

func TestLocationStore_InitialState(t *testing.T) {
	l := NewLocationStore(storage.NewMemory(), nil, nil)
	got := l.Get()
	if got.Latitude != nil || got.Longitude != nil || got.Error != "" || got.IsLoading {
		t.Fatalf("initial location = %+v, want zero", got)
	}
	if _, _, ok := got.Coordinates(); ok {
		t.Fatal("Coordinates() ok = true for unknown position")
	}
}

func TestLocationStore_ManualOverrideTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	locator := &fakeLocator{lat: 1, lon: 2}
	l := NewLocationStore(kv, locator, nil)

	if err := l.SetManualLocation(ctx, [2]float64{10.7626, 106.6601}); err != nil {
		t.Fatalf("SetManualLocation returned error: %v", err)
	}
	raw, ok, _ := kv.Get(ctx, storage.Session, storage.KeyManualLocation)
	if !ok || raw != "[10.7626,106.6601]" {
		t.Fatalf("stored override = %q, want [10.7626,106.6601]", raw)
	}

	l.CurrentLocation(ctx)
	lat, lon, ok := l.Get().Coordinates()
	if !ok || lat != 10.7626 || lon != 106.6601 {
		t.Fatalf("coordinates = %v,%v, want manual override", lat, lon)
	}
	if locator.calls != 0 {
		t.Fatalf("locator called %d times, want 0 while an override exists", locator.calls)
	}
	if l.Get().IsLoading {
		t.Fatal("IsLoading = true after lookup")
	}
}

func TestLocationStore_ZeroOverrideIsIgnored(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	if err := storage.SetJSON(ctx, kv, storage.Session, storage.KeyManualLocation, [2]float64{0, 106}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	locator := &fakeLocator{lat: 3, lon: 4}
	l := NewLocationStore(kv, locator, nil)

	l.CurrentLocation(ctx)
	if lat, _, _ := l.Get().Coordinates(); lat != 3 || locator.calls != 1 {
		t.Fatalf("lat = %v calls = %d, want locator result", lat, locator.calls)
	}
}

func TestLocationStore_FailureKeepsCoordinates(t *testing.T) {
	ctx := context.Background()
	locator := &fakeLocator{lat: 5, lon: 6}
	l := NewLocationStore(storage.NewMemory(), locator, nil)
	l.CurrentLocation(ctx)

	locator.err = errors.New("timeout")
	l.CurrentLocation(ctx)

	got := l.Get()
	if got.Error != "Unable to retrieve location: timeout" {
		t.Fatalf("Error = %q", got.Error)
	}
	if lat, lon, ok := got.Coordinates(); !ok || lat != 5 || lon != 6 {
		t.Fatalf("coordinates = %v,%v, want previous 5,6", lat, lon)
	}
	if got.IsLoading {
		t.Fatal("IsLoading = true after failure")
	}
}

func TestLocationStore_Unsupported(t *testing.T) {
	ctx := context.Background()
	for name, locator := range map[string]Locator{
		"nil locator":  nil,
		"unsupported":  &fakeLocator{err: ErrLocationUnsupported},
		"no ip lookup": &IPLocator{},
	} {
		t.Run(name, func(t *testing.T) {
			l := NewLocationStore(storage.NewMemory(), locator, nil)
			l.CurrentLocation(ctx)
			if got := l.Get().Error; got != "Geolocation is not supported" {
				t.Fatalf("Error = %q, want unsupported message", got)
			}
		})
	}
}

func TestLocationStore_EnsureLocationRunsOnce(t *testing.T) {
	ctx := context.Background()
	locator := &fakeLocator{lat: 1, lon: 1}
	l := NewLocationStore(storage.NewMemory(), locator, nil)

	if !l.EnsureLocation(ctx) {
		t.Fatal("EnsureLocation = false with no position")
	}
	if l.EnsureLocation(ctx) {
		t.Fatal("EnsureLocation = true with a known position")
	}
	if locator.calls != 1 {
		t.Fatalf("locator calls = %d, want 1", locator.calls)
	}

	loading := NewLocationStore(storage.NewMemory(), locator, nil)
	loading.Set(Location{IsLoading: true})
	if loading.EnsureLocation(ctx) {
		t.Fatal("EnsureLocation = true while a lookup is loading")
	}
}

func TestIPLocator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			_, _ = w.Write([]byte(`{"lat":10.5,"lon":106.5}`))
		case "/long":
			_, _ = w.Write([]byte(`{"latitude":1.5,"longitude":2.5}`))
		case "/empty":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)
	ctx := context.Background()

	lat, lon, err := NewIPLocator(server.URL + "/short").Locate(ctx)
	if err != nil || lat != 10.5 || lon != 106.5 {
		t.Fatalf("short = %v,%v,%v", lat, lon, err)
	}
	lat, lon, err = NewIPLocator(server.URL + "/long").Locate(ctx)
	if err != nil || lat != 1.5 || lon != 2.5 {
		t.Fatalf("long = %v,%v,%v", lat, lon, err)
	}
	if _, _, err := NewIPLocator(server.URL + "/empty").Locate(ctx); err == nil {
		t.Fatal("empty response accepted")
	}
	if _, _, err := NewIPLocator(server.URL + "/down").Locate(ctx); err == nil {
		t.Fatal("error status accepted")
	}
}

func TestFilterStore(t *testing.T) {
	f := NewFilterStore()
	f.SetResults([]api.CarwashSummary{{ID: 1}, {ID: 2}})
	if got := f.Get(); !got.HasResults || len(got.Data) != 2 {
		t.Fatalf("filter = %+v, want 2 results", got)
	}
	f.Clear()
	if got := f.Get(); got.HasResults || got.Data == nil || len(got.Data) != 0 {
		t.Fatalf("filter after Clear = %+v, want empty non-nil data", got)
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(10, 106, 10, 106); d != 0 {
		t.Fatalf("Distance(same) = %v, want 0", d)
	}
	// Ho Chi Minh City to Hanoi is roughly 1,140 km.
	d := Distance(10.7626, 106.6601, 21.0285, 105.8542)
	if math.Abs(d-1140) > 15 {
		t.Fatalf("Distance(HCMC, Hanoi) = %.0f km, want about 1140", d)
	}
}

func TestSyncStore_ConsecutiveFailures(t *testing.T) {
	s := NewSyncStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if s.Get().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Record(errors.New("fail 1"))
	if got := s.Get(); got.ConsecutiveFailures != 1 || got.IsOffline() {
		t.Fatalf("after 1 failure: %+v offline=%v", got, got.IsOffline())
	}
	s.Record(errors.New("fail 2"))
	if got := s.Get(); got.ConsecutiveFailures != 2 || !got.IsOffline() {
		t.Fatalf("after 2 failures: %+v offline=%v", got, got.IsOffline())
	}
	if got := s.Get().LastError; got == nil || got.Error() != "fail 2" {
		t.Fatalf("LastError = %v, want fail 2", got)
	}

	s.Record(nil)
	got := s.Get()
	if got.ConsecutiveFailures != 0 || got.IsOffline() || got.LastError != nil {
		t.Fatalf("after success: %+v", got)
	}
	if !got.LastUpdated.Equal(base) {
		t.Fatalf("LastUpdated = %v, want %v", got.LastUpdated, base)
	}
}
