package core

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/corebit/squill/internal/security"
)

// Store is a CRUD facade over a single table keyed by a primary column.
// Mutations run immediately unless the store is in deferred mode, in which
// case they queue until Commit replays them inside one transaction.
type Store struct {
	db    *DB
	tx    *sql.Tx
	ctx   context.Context
	table string
	pk    string
	err   error

	mu       sync.Mutex
	deferred bool
	queue    []pendingOp
}

// pendingOp is a recorded mutation replayed by Commit.
type pendingOp struct {
	sql    string
	params []any
}

// Table returns a CRUD store for the given table. The primary column
// defaults to "id".
func (db *DB) Table(name string, pkColumn ...string) *Store {
	s := &Store{db: db, pk: "id"}
	if len(pkColumn) > 0 {
		s.pk = pkColumn[0]
	}
	if err := security.ValidateIdentifier(name); err != nil {
		s.err = err
		return s
	}
	if err := security.ValidateIdentifier(s.pk); err != nil {
		s.err = err
		return s
	}
	s.table = name
	return s
}

// Table returns a CRUD store bound to the transaction.
func (tx *Tx) Table(name string, pkColumn ...string) *Store {
	s := tx.db.Table(name, pkColumn...)
	s.tx = tx.tx
	s.ctx = tx.ctx
	return s
}

// WithContext sets the context used for execution and tracing.
func (s *Store) WithContext(ctx context.Context) *Store {
	s.ctx = ctx
	return s
}

// WithTx binds the store's operations to an open transaction.
func (s *Store) WithTx(tx *Tx) *Store {
	s.tx = tx.tx
	if s.ctx == nil {
		s.ctx = tx.ctx
	}
	return s
}

// Err returns the error recorded at construction, if any.
func (s *Store) Err() error {
	return s.err
}

// Create inserts a row from a column-to-value map and returns the new row's
// primary key. Columns render in sorted order so the SQL is deterministic.
// In deferred mode the insert is queued and the returned id is zero.
func (s *Store) Create(data map[string]any) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: create requires at least one column", ErrInvalidConditionShape)
	}

	keys, err := sortedColumns(data)
	if err != nil {
		return 0, err
	}
	params := make([]any, len(keys))
	for i, k := range keys {
		params[i] = data[k]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	sqlText := "INSERT INTO " + s.table + " (" + strings.Join(keys, ", ") + ") VALUES (" + placeholders + ")"

	if s.enqueue(sqlText, params) {
		return 0, nil
	}

	// Drivers without LastInsertId support report the new key through a
	// RETURNING clause instead.
	if rc := s.db.dialect.ReturningClause(s.pk); rc != "" {
		q := s.db.newQuery(s.ctx, s.tx, sqlText+rc, params)
		var id int64
		if err := q.Scalar(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.exec(sqlText, params)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return 0, ErrNoRowsAffected
	}
	return result.LastInsertId()
}

// CreateBatch inserts multiple rows sharing the same column list in a single
// multi-row INSERT. Every row must carry exactly len(columns) values.
func (s *Store) CreateBatch(columns []string, rows [][]any) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(columns) == 0 || len(rows) == 0 {
		return 0, fmt.Errorf("%w: batch create requires columns and rows", ErrInvalidConditionShape)
	}
	for _, col := range columns {
		if err := security.ValidateIdentifier(col); err != nil {
			return 0, err
		}
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	tuples := make([]string, len(rows))
	params := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidConditionShape, i, len(row), len(columns))
		}
		tuples[i] = rowPlaceholder
		params = append(params, row...)
	}
	sqlText := "INSERT INTO " + s.table + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(tuples, ", ")

	if s.enqueue(sqlText, params) {
		return 0, nil
	}
	result, err := s.exec(sqlText, params)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// Read fetches the row with the given primary key into dest. Invalid column
// names in the optional projection are silently dropped; an empty surviving
// list falls back to "*". Returns ErrNoRows when no row matches.
func (s *Store) Read(dest any, id any, columns ...string) error {
	if s.err != nil {
		return s.err
	}
	sqlText := "SELECT " + s.selectList(columns) + " FROM " + s.table + " WHERE " + s.pk + " = ? LIMIT 1"
	q := s.db.newQuery(s.ctx, s.tx, sqlText, []any{id})
	return q.One(dest)
}

// ReadAll fetches every row of the table into dest.
func (s *Store) ReadAll(dest any, columns ...string) error {
	if s.err != nil {
		return s.err
	}
	sqlText := "SELECT " + s.selectList(columns) + " FROM " + s.table
	q := s.db.newQuery(s.ctx, s.tx, sqlText, nil)
	return q.All(dest)
}

// Update modifies the row with the given primary key from a column-to-value
// map and returns the affected row count. SET columns render in sorted
// order; the key parameter follows the SET parameters.
func (s *Store) Update(id any, data map[string]any) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: update requires at least one column", ErrInvalidConditionShape)
	}

	keys, err := sortedColumns(data)
	if err != nil {
		return 0, err
	}
	sets := make([]string, len(keys))
	params := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = k + " = ?"
		params = append(params, data[k])
	}
	params = append(params, id)
	sqlText := "UPDATE " + s.table + " SET " + strings.Join(sets, ", ") + " WHERE " + s.pk + " = ?"

	if s.enqueue(sqlText, params) {
		return 0, nil
	}
	result, err := s.exec(sqlText, params)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// Delete removes the row with the given primary key and returns the
// affected row count.
func (s *Store) Delete(id any) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	sqlText := "DELETE FROM " + s.table + " WHERE " + s.pk + " = ?"
	params := []any{id}

	if s.enqueue(sqlText, params) {
		return 0, nil
	}
	result, err := s.exec(sqlText, params)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// Select fetches rows matching a raw WHERE fragment into dest. The fragment
// is audited for injection patterns; values must come through params, never
// inline literals.
func (s *Store) Select(dest any, whereRaw string, params []any, columns ...string) error {
	if s.err != nil {
		return s.err
	}
	sqlText := "SELECT " + s.selectList(columns) + " FROM " + s.table
	if strings.TrimSpace(whereRaw) != "" {
		if err := security.CheckFragment(whereRaw); err != nil {
			return err
		}
		sqlText += " WHERE " + whereRaw
	}
	q := s.db.newQuery(s.ctx, s.tx, sqlText, params)
	return q.All(dest)
}

// Query returns a full query builder over the store's table, inheriting its
// executor and context.
func (s *Store) Query(fields ...string) *QueryBuilder {
	qb := s.db.From(s.table, fields...)
	qb.tx = s.tx
	qb.ctx = s.ctx
	if s.err != nil {
		qb.fail(s.err)
	}
	return qb
}

// BeginTransaction switches the store into deferred mode: subsequent
// mutations are recorded instead of executed, until Commit or Rollback.
func (s *Store) BeginTransaction() {
	s.mu.Lock()
	s.deferred = true
	s.mu.Unlock()
}

// Commit replays the recorded mutations in order inside a single database
// transaction. On any failure the transaction is rolled back and the first
// error returned. The queue is cleared and deferred mode exited either way.
func (s *Store) Commit() error {
	s.mu.Lock()
	ops := s.queue
	s.queue = nil
	s.deferred = false
	s.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	if s.db == nil || s.db.sqlDB == nil {
		return ErrConnectionUnavailable
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, op := range ops {
		q := s.db.newQuery(ctx, tx, op.sql, op.params)
		if _, err := q.Execute(); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the recorded mutations without touching the database
// and exits deferred mode.
func (s *Store) Rollback() {
	s.mu.Lock()
	s.queue = nil
	s.deferred = false
	s.mu.Unlock()
}

// Pending returns the number of queued mutations.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Store) enqueue(sqlText string, params []any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deferred {
		return false
	}
	s.queue = append(s.queue, pendingOp{sql: sqlText, params: params})
	return true
}

func (s *Store) exec(sqlText string, params []any) (sql.Result, error) {
	if s.db == nil {
		return nil, ErrConnectionUnavailable
	}
	q := s.db.newQuery(s.ctx, s.tx, sqlText, params)
	return q.Execute()
}

// selectList filters a projection down to valid column names, falling back
// to "*" when nothing survives.
func (s *Store) selectList(columns []string) string {
	kept := security.FilterColumns(columns)
	if len(kept) == 0 {
		return "*"
	}
	return strings.Join(kept, ", ")
}

// sortedColumns validates the map's column names and returns them sorted.
func sortedColumns(data map[string]any) ([]string, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		if err := security.ValidateIdentifier(k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
