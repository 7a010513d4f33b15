// Package squill is a fluent SQL query builder and lightweight CRUD layer
// for MySQL, PostgreSQL, and SQLite.
//
// Queries are built by chaining clause methods and finish with a terminal
// call that assembles deterministic SQL with bound parameters:
//
//	db, err := squill.Open("sqlite", ":memory:")
//	...
//	var users []User
//	err = db.From("users").
//		Select("id", "name").
//		Where("age >", 18).
//		OrderBy("name", "ASC").
//		Get(&users)
//
// Single-table CRUD goes through a Store:
//
//	users := db.Table("users")
//	id, err := users.Create(map[string]any{"name": "ada", "age": 36})
package squill

import (
	"github.com/corebit/squill/internal/core"
	"github.com/corebit/squill/internal/logger"
	"github.com/corebit/squill/internal/tracer"
)

// Re-exported core types.
type (
	// DB is a database handle carrying the dialect, statement cache, and
	// observability configuration.
	DB = core.DB
	// Tx is a live database transaction.
	Tx = core.Tx
	// Option configures a DB during Open.
	Option = core.Option
	// QueryBuilder accumulates SELECT clauses through a fluent API.
	QueryBuilder = core.QueryBuilder
	// Query is an assembled statement bound to an executor.
	Query = core.Query
	// Store is a CRUD facade over a single table.
	Store = core.Store
	// Cond is an explicit condition variant for Where clauses.
	Cond = core.Cond
	// Pagination describes one page of results.
	Pagination = core.Pagination
	// NullStringMap is a generic row representation.
	NullStringMap = core.NullStringMap
	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook observes executed statements.
	QueryHook = core.QueryHook
	// QueryError wraps a driver failure with the SQL that caused it.
	QueryError = core.QueryError
	// Logger is the pluggable logging interface.
	Logger = logger.Logger
	// Tracer is the pluggable tracing interface.
	Tracer = tracer.Tracer
)

// Connection constructors.
var (
	// Open opens a database handle and applies options.
	Open = core.Open
	// NewDB opens a database handle with defaults.
	NewDB = core.NewDB
	// WrapDB adopts an existing database/sql handle.
	WrapDB = core.WrapDB
)

// Options.
var (
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithConnMaxLifetime   = core.WithConnMaxLifetime
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithSlogLogger        = core.WithSlogLogger
	WithSensitiveFields   = core.WithSensitiveFields
	WithTracer            = core.WithTracer
	WithQueryHook         = core.WithQueryHook
	WithHealthCheck       = core.WithHealthCheck
)

// Condition constructors for the explicit Cond form of Where.
var (
	Equals     = core.Equals
	Not        = core.Not
	In         = core.In
	NotIn      = core.NotIn
	Between    = core.Between
	NotBetween = core.NotBetween
	IsNull     = core.IsNull
	IsNotNull  = core.IsNotNull
	RawOp      = core.RawOp
	RawOpNot   = core.RawOpNot
)

// Sentinel errors.
var (
	ErrInvalidIdentifier     = core.ErrInvalidIdentifier
	ErrUnsafeFragment        = core.ErrUnsafeFragment
	ErrInvalidConditionShape = core.ErrInvalidConditionShape
	ErrConnectionUnavailable = core.ErrConnectionUnavailable
	ErrUnsupportedDialect    = core.ErrUnsupportedDialect
	ErrNoRows                = core.ErrNoRows
	ErrNoRowsAffected        = core.ErrNoRowsAffected
	ErrTxDone                = core.ErrTxDone
)

// NewOtelTracer adapts an OpenTelemetry tracer for use with WithTracer.
var NewOtelTracer = tracer.NewOtelTracer
