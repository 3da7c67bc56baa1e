package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 80; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
	if got := calculateBackoff(3, time.Minute); got != time.Minute {
		t.Errorf("calculateBackoff with base above cap = %v, want %v", got, time.Minute)
	}
}

type fakeRefresher struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeRefresher) RefreshCarwashes(context.Context) query.Result[[]api.CarwashSummary] {
	f.calls.Add(1)
	if f.fail.Load() {
		return query.Result[[]api.CarwashSummary]{Status: query.StatusError, Err: errors.New("connection refused")}
	}
	return query.Result[[]api.CarwashSummary]{Status: query.StatusSuccess, HasData: true}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartPoller_RecordsOutcomes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := &fakeRefresher{}
	refresher.fail.Store(true)
	sync := state.NewSyncStore()

	StartPoller(ctx, refresher, sync, time.Millisecond, nil)

	waitFor(t, "offline after repeated failures", func() bool { return sync.Get().IsOffline() })

	refresher.fail.Store(false)
	waitFor(t, "recovery after a successful poll", func() bool {
		s := sync.Get()
		return s.ConsecutiveFailures == 0 && s.LastError == nil
	})

	cancel()
	time.Sleep(50 * time.Millisecond)
	stopped := refresher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := refresher.calls.Load(); got > stopped+1 {
		t.Fatalf("poller kept running after cancel: %d calls, then %d", stopped, got)
	}
}
