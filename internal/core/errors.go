package core

import (
	"database/sql"
	"errors"

	"github.com/corebit/squill/internal/security"
)

// Predefined errors returned by Squill operations.
var (
	// ErrInvalidIdentifier is returned when a table or column name fails the
	// identifier pattern. Raised at the builder call that supplied the name,
	// never at execution time.
	ErrInvalidIdentifier = security.ErrInvalidIdentifier
	// ErrUnsafeFragment is returned when a raw WHERE or HAVING fragment
	// matches a known injection pattern.
	ErrUnsafeFragment = security.ErrUnsafeFragment
	// ErrInvalidConditionShape is returned when a condition is given values
	// of the wrong arity, e.g. IN with an empty list or BETWEEN without
	// exactly two bounds.
	ErrInvalidConditionShape = errors.New("invalid condition shape")
	// ErrConnectionUnavailable is returned when an execution is attempted
	// without a usable database handle.
	ErrConnectionUnavailable = errors.New("no database connection available")
	// ErrUnsupportedDialect is returned when no dialect is registered for a
	// driver name.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	// ErrNoRows is returned when a query that expects a row returns none.
	ErrNoRows = sql.ErrNoRows
	// ErrNoRowsAffected is returned when an INSERT reports zero affected rows.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrTxDone is returned when operating on a finished transaction.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
)

// QueryError wraps a failure surfaced by the database driver with the SQL
// that caused it. It is the only error kind that crosses the execution
// boundary; builder-side errors are reported before any SQL is run.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return "query failed: " + e.Err.Error() + " [" + e.SQL + "]"
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
