package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/corebit/squill/internal/tracer"
)

// Query is an assembled statement bound to an executor. The SQL text is
// final, with the dialect's placeholder form already applied, and params
// match its placeholder order.
type Query struct {
	sql    string
	params []any
	db     *DB
	tx     *sql.Tx
	ctx    context.Context
}

// SQL returns the final SQL text.
func (q *Query) SQL() string { return q.sql }

// Params returns the bind values in placeholder order.
func (q *Query) Params() []any { return q.params }

func (q *Query) context() context.Context {
	if q.ctx != nil {
		return q.ctx
	}
	return context.Background()
}

// prepare returns a prepared statement and whether the caller owns closing
// it. Statements outside a transaction go through the LRU cache and stay
// open; transactional statements bypass the cache because a *sql.Stmt is
// bound to its transaction.
func (q *Query) prepare(ctx context.Context) (*sql.Stmt, bool, error) {
	if q.db == nil || (q.tx == nil && q.db.sqlDB == nil) {
		return nil, false, ErrConnectionUnavailable
	}
	if q.tx != nil {
		stmt, err := q.tx.PrepareContext(ctx, q.sql)
		return stmt, true, err
	}
	if stmt, ok := q.db.stmtCache.Get(q.sql); ok {
		return stmt, false, nil
	}
	stmt, err := q.db.sqlDB.PrepareContext(ctx, q.sql)
	if err != nil {
		return nil, false, err
	}
	q.db.stmtCache.Set(q.sql, stmt)
	return stmt, false, nil
}

// Execute runs the statement and returns the driver result.
func (q *Query) Execute() (sql.Result, error) {
	ctx := q.context()
	ctx, span := q.db.tracer.StartSpan(ctx, "squill.query.execute")
	defer span.End()

	start := time.Now()
	stmt, transient, err := q.prepare(ctx)
	if err != nil {
		q.report(ctx, span, time.Since(start), 0, err)
		return nil, &QueryError{SQL: q.sql, Err: err}
	}
	if transient {
		defer stmt.Close()
	}

	result, err := stmt.ExecContext(ctx, q.params...)
	var affected int64
	if err == nil && result != nil {
		affected, _ = result.RowsAffected()
	}
	q.report(ctx, span, time.Since(start), affected, err)
	if err != nil {
		return nil, &QueryError{SQL: q.sql, Err: err}
	}
	return result, nil
}

// One scans the first result row into dest, a struct pointer or a
// *NullStringMap. Returns ErrNoRows when the result set is empty.
func (q *Query) One(dest any) error {
	rows, err := q.runQuery("squill.query.one")
	if err != nil {
		return err
	}
	defer rows.Close()
	if m, ok := dest.(*NullStringMap); ok {
		return scanMapRow(rows, m)
	}
	return scanRow(rows, dest)
}

// All scans every result row into dest, a pointer to a slice of structs
// (or struct pointers) or a *[]NullStringMap.
func (q *Query) All(dest any) error {
	rows, err := q.runQuery("squill.query.all")
	if err != nil {
		return err
	}
	defer rows.Close()
	if ms, ok := dest.(*[]NullStringMap); ok {
		return scanMapRows(rows, ms)
	}
	return scanRows(rows, dest)
}

// Scalar scans the first column of the first row into dest. Returns
// ErrNoRows when the result set is empty.
func (q *Query) Scalar(dest any) error {
	rows, err := q.runQuery("squill.query.scalar")
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return &QueryError{SQL: q.sql, Err: err}
		}
		return ErrNoRows
	}
	if err := rows.Scan(dest); err != nil {
		return &QueryError{SQL: q.sql, Err: err}
	}
	return rows.Err()
}

func (q *Query) runQuery(spanName string) (*sql.Rows, error) {
	ctx := q.context()
	ctx, span := q.db.tracer.StartSpan(ctx, spanName)
	defer span.End()

	start := time.Now()
	stmt, transient, err := q.prepare(ctx)
	if err != nil {
		q.report(ctx, span, time.Since(start), 0, err)
		return nil, &QueryError{SQL: q.sql, Err: err}
	}
	if transient {
		// database/sql closes lazily once the rows are drained.
		defer stmt.Close()
	}

	rows, err := stmt.QueryContext(ctx, q.params...)
	q.report(ctx, span, time.Since(start), 0, err)
	if err != nil {
		return nil, &QueryError{SQL: q.sql, Err: err}
	}
	return rows, nil
}

// report emits the log line, span attributes, and hook event for one
// execution.
func (q *Query) report(ctx context.Context, span tracer.Span, elapsed time.Duration, affected int64, err error) {
	masked := q.db.sanitizer.MaskParams(q.sql, q.params)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	if err != nil {
		q.db.logger.Error("query failed",
			"sql", q.sql,
			"params", q.db.sanitizer.FormatParams(masked),
			"duration_ms", durationMs,
			"database", q.db.driverName,
			"error", err)
	} else {
		q.db.logger.Debug("query executed",
			"sql", q.sql,
			"params", q.db.sanitizer.FormatParams(masked),
			"duration_ms", durationMs,
			"database", q.db.driverName,
			"rows_affected", affected)
	}

	op := tracer.DetectOperation(q.sql)
	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          q.sql,
		Args:         masked,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Database:     q.db.driverName,
		Operation:    op,
	})

	q.db.invokeHook(ctx, QueryEvent{
		SQL:          q.sql,
		Params:       masked,
		Duration:     elapsed,
		RowsAffected: affected,
		Err:          err,
		Operation:    op,
		Database:     q.db.driverName,
	})
}
