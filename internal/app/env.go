package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/config"
	"github.com/five82/washbook/internal/flows"
	"github.com/five82/washbook/internal/media"
	"github.com/five82/washbook/internal/prefs"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
	"github.com/five82/washbook/internal/storage"
)

// Options configure the washbook application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/washbook/prefs.toml
	LogLevel   string        // overrides config when set
	PollEvery  time.Duration // zero uses default

	// LogOutput receives log records. When nil the log file under the
	// configured log directory is used, since the TUI owns the terminal.
	LogOutput io.Writer
}

// Env is the wired application without a UI. CLI commands run against it.
type Env struct {
	Config   config.Config
	Prefs    prefs.Prefs
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Cache    *query.Cache
	KV       storage.KV
	Stores   *state.Stores
	API      *api.Client
	Flows    *flows.Flows

	closers []io.Closer
}

// NewEnv loads configuration and builds every component. The saved session
// is restored before it returns. Callers must Close the Env.
func NewEnv(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	env := &Env{Config: cfg, Prefs: userPrefs}

	out := opts.LogOutput
	if out == nil {
		f, err := openLogFile(cfg.LogPath())
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, f)
		out = f
	}
	env.Logger = newLogger(cfg.LogLevel, out)

	env.Registry = prometheus.NewRegistry()
	env.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	env.Cache = query.New(
		query.WithLogger(env.Logger),
		query.WithMetrics(query.NewMetrics(query.WithRegistry(env.Registry))),
		query.WithDefaultStaleTime(cfg.Query.DefaultStaleTime),
	)

	kv, closer, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	env.KV = kv
	env.closers = append(env.closers, closer)

	env.Stores = state.NewStores(kv, locatorFor(cfg.Location), env.Logger)

	env.API, err = api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithTokenSource(env.Stores.Session.Token),
	)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	env.Flows = flows.New(flows.Deps{
		API:      env.API,
		Cache:    env.Cache,
		Stores:   env.Stores,
		Uploader: media.New(cfg.Media),
		Logger:   env.Logger,
	}.WithConfig(&cfg))

	if err := env.Stores.Session.Restore(ctx); err != nil {
		env.Logger.Warn("session restore failed", slog.String("error", err.Error()))
	}
	env.Logger.Info("washbook started",
		slog.String("api_url", env.API.BaseURL()),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("signed_in", env.Stores.Session.Get().SignedIn()),
	)
	return env, nil
}

func locatorFor(cfg config.Location) state.Locator {
	switch {
	case cfg.HasFixed():
		return state.StaticLocator{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}
	case cfg.LookupURL != "":
		return state.NewIPLocator(cfg.LookupURL)
	default:
		return nil
	}
}

// Close releases storage and the log file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
