package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything washbook reads from config.toml.
type Config struct {
	APIURL         string
	RequestTimeout time.Duration
	LogLevel       string
	LogDir         string

	Query    Query
	Search   Search
	Storage  Storage
	Location Location
	Media    Media
	Metrics  Metrics
}

// Query tunes the request cache.
type Query struct {
	CarwashStaleTime time.Duration
	DefaultStaleTime time.Duration
}

// Pagination modes for the station search.
const (
	PaginationClient = "client"
	PaginationServer = "server"
)

// Search configures the paged station list.
type Search struct {
	PageSize   int
	Pagination string
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Storage selects where tokens and the manual location are kept.
type Storage struct {
	Driver string
	Path   string
	DSN    string
}

// Location is an optional fixed position and IP lookup endpoint.
type Location struct {
	Latitude  *float64
	Longitude *float64
	LookupURL string
}

// HasFixed reports whether both fixed coordinates are set.
func (l Location) HasFixed() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Media configures S3-compatible uploads of feedback images.
type Media struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket is configured.
func (m Media) Enabled() bool {
	return m.Bucket != ""
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Listen string
}

const (
	defaultConfigPath       = "~/.config/washbook/config.toml"
	defaultAPIURL           = "http://localhost:8080"
	defaultRequestTimeout   = 10 * time.Second
	defaultLogLevel         = "info"
	defaultLogDir           = "~/.local/share/washbook/logs"
	defaultCarwashStaleTime = 5 * time.Minute
	defaultPageSize         = 10
	defaultStoragePath      = "~/.local/share/washbook/storage.toml"

	envAPIURL   = "WASHBOOK_API_URL"
	envLogLevel = "WASHBOOK_LOG_LEVEL"
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
		LogDir:         mustExpand(defaultLogDir),
		Query:          Query{CarwashStaleTime: defaultCarwashStaleTime},
		Search:         Search{PageSize: defaultPageSize, Pagination: PaginationClient},
		Storage:        Storage{Driver: DriverFile, Path: mustExpand(defaultStoragePath)},
	}
}

type rawConfig struct {
	APIURL         string `toml:"api_url"`
	RequestTimeout string `toml:"request_timeout"`
	LogLevel       string `toml:"log_level"`
	LogDir         string `toml:"log_dir"`

	Query struct {
		CarwashStaleTime string `toml:"carwash_stale_time"`
		DefaultStaleTime string `toml:"default_stale_time"`
	} `toml:"query"`

	Search struct {
		PageSize   int    `toml:"page_size"`
		Pagination string `toml:"pagination"`
	} `toml:"search"`

	Storage struct {
		Driver string `toml:"driver"`
		Path   string `toml:"path"`
		DSN    string `toml:"dsn"`
	} `toml:"storage"`

	Location struct {
		Latitude  *float64 `toml:"latitude"`
		Longitude *float64 `toml:"longitude"`
		LookupURL string   `toml:"lookup_url"`
	} `toml:"location"`

	Media struct {
		Bucket          string `toml:"bucket"`
		Region          string `toml:"region"`
		Endpoint        string `toml:"endpoint"`
		PublicBaseURL   string `toml:"public_base_url"`
		AccessKeyID     string `toml:"access_key_id"`
		SecretAccessKey string `toml:"secret_access_key"`
	} `toml:"media"`

	Metrics struct {
		Listen string `toml:"listen"`
	} `toml:"metrics"`
}

// Load reads the config at path (the default location when empty), applies
// defaults and environment overrides, and validates the result. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
	} else {
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.apply(bytes); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		c.LogDir = mustExpand(v)
	}

	var err error
	if c.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, c.RequestTimeout); err != nil {
		return err
	}
	if c.Query.CarwashStaleTime, err = parseDuration("query.carwash_stale_time", raw.Query.CarwashStaleTime, c.Query.CarwashStaleTime); err != nil {
		return err
	}
	if c.Query.DefaultStaleTime, err = parseDuration("query.default_stale_time", raw.Query.DefaultStaleTime, c.Query.DefaultStaleTime); err != nil {
		return err
	}

	if raw.Search.PageSize != 0 {
		c.Search.PageSize = raw.Search.PageSize
	}
	if v := strings.TrimSpace(raw.Search.Pagination); v != "" {
		c.Search.Pagination = strings.ToLower(v)
	}

	if v := strings.TrimSpace(raw.Storage.Driver); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Storage.Path); v != "" {
		c.Storage.Path = mustExpand(v)
	}
	c.Storage.DSN = strings.TrimSpace(raw.Storage.DSN)

	c.Location.Latitude = raw.Location.Latitude
	c.Location.Longitude = raw.Location.Longitude
	c.Location.LookupURL = strings.TrimSpace(raw.Location.LookupURL)

	c.Media = Media{
		Bucket:          strings.TrimSpace(raw.Media.Bucket),
		Region:          strings.TrimSpace(raw.Media.Region),
		Endpoint:        strings.TrimSpace(raw.Media.Endpoint),
		PublicBaseURL:   strings.TrimRight(strings.TrimSpace(raw.Media.PublicBaseURL), "/"),
		AccessKeyID:     strings.TrimSpace(raw.Media.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(raw.Media.SecretAccessKey),
	}
	c.Metrics.Listen = strings.TrimSpace(raw.Metrics.Listen)
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want an http(s) URL", c.APIURL)
	}
	if c.Search.PageSize < 1 {
		return fmt.Errorf("invalid search.page_size %d: must be at least 1", c.Search.PageSize)
	}
	switch c.Search.Pagination {
	case PaginationClient, PaginationServer:
	default:
		return fmt.Errorf("invalid search.pagination %q: want %q or %q", c.Search.Pagination, PaginationClient, PaginationServer)
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.driver %q requires storage.dsn", DriverPostgres)
		}
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("location needs both latitude and longitude")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// LogPath returns the file the TUI logs to.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return filepath.Join(mustExpand(defaultLogDir), "washbook.log")
	}
	return filepath.Join(c.LogDir, "washbook.log")
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
