package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher reloads the station list. flows.Catalog implements it.
type Refresher interface {
	RefreshCarwashes(ctx context.Context) query.Result[[]api.CarwashSummary]
}

// StartPoller launches a background goroutine that refreshes the station
// list at a fixed cadence and records each outcome in sync. Failures back
// off exponentially. It returns immediately.
func StartPoller(ctx context.Context, catalog Refresher, sync *state.SyncStore, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		failures := 0
		for {
			err := catalog.RefreshCarwashes(ctx).Err
			if sync != nil {
				sync.Record(err)
			}
			if err != nil {
				failures++
				logger.Warn("station poll failed",
					slog.String("error", err.Error()),
					slog.Int("consecutive_failures", failures),
				)
			} else {
				failures = 0
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff. Intervals already above the cap are left alone.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
