// Package dbconn manages pooled connections to the source/destination store.
//
// It wraps database/sql (which provides the pool itself) with the pipeline's
// retry policy: establishing connectivity is retried with bounded exponential
// backoff, and exhausting the retry budget yields a *ConnError. The pool size
// comes from the run configuration; acquisition beyond the cap blocks inside
// database/sql rather than opening extra connections.
//
// Drivers are registered separately by importing scetl/internal/dbconn/drivers
// (typically from package main), so this package stays driver-agnostic.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"scetl/internal/config"
)

// ConnError reports that connectivity could not be established within the
// configured retry budget.
type ConnError struct {
	Attempts int
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// DB is a pooled database handle bound to one run's configuration.
type DB struct {
	sql    *sql.DB
	driver string
	log    *zap.Logger
}

// driverName maps the config driver to the name registered with database/sql.
func driverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return driver
}

// Open builds the pooled handle and verifies connectivity under the retry
// policy. The returned DB owns no state beyond the pool; Close releases it.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	sqlDB.SetMaxOpenConns(cfg.PoolSize)
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetConnMaxIdleTime(time.Hour)

	if err := pingWithRetry(ctx, sqlDB.PingContext, cfg.MaxRetries, cfg.RetryBackoffBase(), log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("connected to database",
		zap.String("driver", cfg.Driver),
		zap.String("database", cfg.DBName),
		zap.Int("pool_size", cfg.PoolSize))
	return &DB{sql: sqlDB, driver: cfg.Driver, log: log}, nil
}

// NewFromSQL wraps an already-open handle. Used by tests and by callers that
// manage the pool themselves.
func NewFromSQL(sqlDB *sql.DB, driver string, log *zap.Logger) *DB {
	return &DB{sql: sqlDB, driver: driver, log: log}
}

// pingWithRetry verifies connectivity, retrying transient failures with
// exponential backoff (base, 2*base, 4*base, ...). maxRetries bounds the
// retries after the initial attempt.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, maxRetries int, base time.Duration, log *zap.Logger) error {
	attempts := maxRetries + 1
	var err error
	for i := 0; i < attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		backoff := base << i
		log.Warn("database unavailable, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return &ConnError{Attempts: i + 1, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	return &ConnError{Attempts: attempts, Err: err}
}

// WithConn checks a single connection out of the pool for the duration of a
// unit of work. The connection is returned to the pool (or discarded, if the
// driver marked it bad) on every exit path.
func (d *DB) WithConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := d.sql.Conn(ctx)
	if err != nil {
		return &ConnError{Attempts: 1, Err: err}
	}
	defer conn.Close()
	return fn(conn)
}

// SQL exposes the underlying pool for query execution.
func (d *DB) SQL() *sql.DB { return d.sql }

// Driver reports the configured driver name ("mysql", "postgres", "sqlite").
func (d *DB) Driver() string { return d.driver }

// Placeholder returns the 1-based positional parameter marker for the
// configured driver.
func (d *DB) Placeholder(n int) string {
	if d.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Close releases the pool.
func (d *DB) Close() error { return d.sql.Close() }

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is safe to interpolate as a SQL identifier.
// Table and column names come from configuration and rule catalogs, never
// from data, but this guards against a malformed run file reaching SQL text.
func ValidIdent(s string) bool { return identRe.MatchString(s) }
