package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/five82/washbook/internal/config"
)

// Scope separates values that survive restarts from values that last one
// process.
type Scope int

const (
	// Persistent values survive restarts.
	Persistent Scope = iota
	// Session values are dropped when the process exits.
	Session
)

func (s Scope) String() string {
	if s == Session {
		return "session"
	}
	return "persistent"
}

// Keys used by the session and location stores.
const (
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyUserInfo       = "userInfo"
	KeyUserID         = "userId"
	KeyManualLocation = "manual-location"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage closed")

// KV is a string key-value store with two scopes.
type KV interface {
	Get(ctx context.Context, scope Scope, key string) (string, bool, error)
	Set(ctx context.Context, scope Scope, key, value string) error
	Delete(ctx context.Context, scope Scope, key string) error
}

// GetJSON decodes the JSON value stored under key into dest. It reports
// false when the key is missing.
func GetJSON(ctx context.Context, kv KV, scope Scope, key string, dest any) (bool, error) {
	raw, ok, err := kv.Get(ctx, scope, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key as JSON.
func SetJSON(ctx context.Context, kv KV, scope Scope, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, scope, key, string(raw))
}

// DeleteAll removes keys from scope and returns the first error.
func DeleteAll(ctx context.Context, kv KV, scope Scope, keys ...string) error {
	var first error
	for _, key := range keys {
		if err := kv.Delete(ctx, scope, key); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend selected by cfg.Driver. The returned Closer
// releases it.
func Open(ctx context.Context, cfg config.Storage) (KV, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nopCloser{}, nil
	case config.DriverFile, "":
		f, err := NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
