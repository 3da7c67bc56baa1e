package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/washbook/internal/prefs"
	"github.com/five82/washbook/internal/ui"
)

// Run boots the washbook TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := NewEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if listen := env.Config.Metrics.Listen; listen != "" {
		if err := serveMetrics(ctx, listen, MetricsRouter(env.Registry), env.Logger); err != nil {
			return err
		}
	}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}
	StartPoller(ctx, env.Flows.Catalog, env.Stores.Sync, interval, env.Logger)

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	if err := ui.Run(ctx, ui.Options{
		Flows:     env.Flows,
		Stores:    env.Stores,
		Cache:     env.Cache,
		Prefs:     env.Prefs,
		PrefsPath: prefsPath,
		Logger:    env.Logger,
	}); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	env.Logger.Info("washbook stopped", slog.String("reason", "user exit"))
	return nil
}
