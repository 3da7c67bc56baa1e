package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Dialect selects placeholder and upsert syntax.
type Dialect int

const (
	// DialectPostgres uses $n placeholders and ON CONFLICT.
	DialectPostgres Dialect = iota
	// DialectSQLite uses ? placeholders and INSERT OR REPLACE.
	DialectSQLite
)

const defaultTable = "washbook_kv"

// SQL stores values in a database table:
//
//	CREATE TABLE washbook_kv (
//	    scope TEXT NOT NULL,
//	    key TEXT NOT NULL,
//	    value TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (scope, key)
//	);
//
// Session values are stored under a scope unique to this process and
// deleted on Close.
type SQL struct {
	db        *sql.DB
	table     string
	dialect   Dialect
	sessionID string
	ownsDB    bool
	closed    atomic.Bool
}

// SQLOption configures NewSQL.
type SQLOption func(*SQL)

// WithTable overrides the table name.
func WithTable(name string) SQLOption {
	return func(s *SQL) {
		if name != "" {
			s.table = name
		}
	}
}

// WithDialect sets the SQL dialect (default DialectPostgres).
func WithDialect(d Dialect) SQLOption {
	return func(s *SQL) {
		s.dialect = d
	}
}

// NewSQL wraps an open database. The caller keeps ownership of db.
func NewSQL(db *sql.DB, opts ...SQLOption) *SQL {
	s := &SQL{
		db:        db,
		table:     defaultTable,
		dialect:   DialectPostgres,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres connects with lib/pq, checks the connection and ensures the
// table exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewSQL(db)
	s.ownsDB = true
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table if it does not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	stamp := "TIMESTAMPTZ NOT NULL DEFAULT NOW()"
	if s.dialect == DialectSQLite {
		stamp = "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at %s,
		PRIMARY KEY (scope, key)
	)`, s.table, stamp)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}
	return nil
}

func (s *SQL) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQL) scopeName(scope Scope) string {
	if scope == Session {
		return "session:" + s.sessionID
	}
	return scope.String()
}

func (s *SQL) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}
	query := fmt.Sprintf(`SELECT value FROM %s WHERE scope = %s AND key = %s`,
		s.table, s.placeholder(1), s.placeholder(2))
	var value string
	err := s.db.QueryRowContext(ctx, query, s.scopeName(scope), key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQL) Set(ctx context.Context, scope Scope, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	var query string
	switch s.dialect {
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (scope, key, value, updated_at)
			VALUES (?, ?, ?, datetime('now'))
		`, s.table)
	default:
		query = fmt.Sprintf(`
			INSERT INTO %s (scope, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (scope, key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.table)
	}
	if _, err := s.db.ExecContext(ctx, query, s.scopeName(scope), key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, scope Scope, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope = %s AND key = %s`,
		s.table, s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, query, s.scopeName(scope), key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close drops this process's session rows and, when the store opened the
// database itself, closes it.
func (s *SQL) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	query := fmt.Sprintf(`DELETE FROM %s WHERE scope = %s`, s.table, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, s.scopeName(Session))
	if err != nil {
		err = fmt.Errorf("clear session storage: %w", err)
	}
	if s.ownsDB {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
