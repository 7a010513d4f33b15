// Package core implements the query builder, condition encoder, SQL
// assembler, and CRUD store behind the squill package.
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corebit/squill/internal/cache"
	"github.com/corebit/squill/internal/dialects"
	"github.com/corebit/squill/internal/logger"
	"github.com/corebit/squill/internal/tracer"
)

// DB wraps a database/sql handle with the dialect, statement cache, and
// observability hooks shared by every query built from it.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	dialect    dialects.Dialect
	stmtCache  *cache.StmtCache
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	queryHook  QueryHook

	healthInterval time.Duration
	health         *healthChecker
}

// Option configures a DB during Open.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) { db.sqlDB.SetMaxOpenConns(n) }
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) { db.sqlDB.SetMaxIdleConns(n) }
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be
// reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *DB) { db.sqlDB.SetConnMaxLifetime(d) }
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(n int) Option {
	return func(db *DB) { db.stmtCache = cache.NewWithCapacity(n) }
}

// WithLogger sets the query logger. The default is a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// WithSlogLogger sets the query logger from a standard slog.Logger.
func WithSlogLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = logger.NewSlogAdapter(l) }
}

// WithSensitiveFields replaces the default list of column names whose
// parameter values are masked in log output.
func WithSensitiveFields(fields []string) Option {
	return func(db *DB) { db.sanitizer = logger.NewSanitizer(fields) }
}

// WithTracer sets the tracer. The default is a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) { db.tracer = t }
}

// WithQueryHook registers a hook invoked after every executed statement.
func WithQueryHook(h QueryHook) Option {
	return func(db *DB) { db.queryHook = h }
}

// WithHealthCheck enables a background health probe at the given interval.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) { db.healthInterval = interval }
}

// NewDB opens a database handle for the driver and DSN with defaults.
// The driver name selects the dialect; unknown drivers are rejected.
func NewDB(driverName, dsn string) (*DB, error) {
	dialect, ok := dialects.Lookup(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	return wrap(sqlDB, driverName, dialect), nil
}

// WrapDB adopts an existing database/sql handle, e.g. one shared with other
// libraries or backed by a connection pooler.
func WrapDB(sqlDB *sql.DB, driverName string) (*DB, error) {
	if sqlDB == nil {
		return nil, ErrConnectionUnavailable
	}
	dialect, ok := dialects.Lookup(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
	return wrap(sqlDB, driverName, dialect), nil
}

func wrap(sqlDB *sql.DB, driverName string, dialect dialects.Dialect) *DB {
	return &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		dialect:    dialect,
		stmtCache:  cache.New(),
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
}

// Open opens a database handle and applies options, starting the background
// health checker when one is configured.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	db, err := NewDB(driverName, dsn)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.healthInterval > 0 {
		db.health = newHealthChecker(db.sqlDB, db.logger, db.healthInterval)
		db.health.start()
	}
	return db, nil
}

// Ping verifies the database connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.sqlDB == nil {
		return ErrConnectionUnavailable
	}
	return db.sqlDB.PingContext(ctx)
}

// Healthy reports the result of the last background health probe. Without a
// configured checker it reports true.
func (db *DB) Healthy() bool {
	if db.health == nil {
		return true
	}
	return db.health.healthy()
}

// DriverName returns the driver the handle was opened with.
func (db *DB) DriverName() string {
	return db.driverName
}

// CacheStats returns the statement cache counters.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}

// Unwrap returns the underlying *sql.DB.
func (db *DB) Unwrap() *sql.DB {
	return db.sqlDB
}

// Close stops the health checker, closes all cached statements, and closes
// the underlying handle.
func (db *DB) Close() error {
	if db.health != nil {
		db.health.stop()
	}
	if db.stmtCache != nil {
		db.stmtCache.Clear()
	}
	if db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// newQuery binds assembled SQL to an executor, renumbering "?" placeholders
// into the dialect's positional form when the two differ.
func (db *DB) newQuery(ctx context.Context, tx *sql.Tx, sqlText string, params []any) *Query {
	if db.dialect.Placeholder(1) != "?" {
		for i := range params {
			sqlText = strings.Replace(sqlText, "?", db.dialect.Placeholder(i+1), 1)
		}
	}
	return &Query{sql: sqlText, params: params, db: db, tx: tx, ctx: ctx}
}

// Tx is a live database transaction carrying the parent DB configuration.
// Queries and stores derived from it run inside the transaction.
type Tx struct {
	tx   *sql.Tx
	db   *DB
	ctx  context.Context
	done bool
}

// Begin starts a transaction.
func (db *DB) Begin() (*Tx, error) {
	return db.BeginTx(context.Background(), nil)
}

// BeginTx starts a transaction with the given context and options.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	if db.sqlDB == nil {
		return nil, ErrConnectionUnavailable
	}
	tx, err := db.sqlDB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx, db: db, ctx: ctx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}
