package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/corebit/squill/internal/security"
)

// QueryBuilder accumulates SELECT clauses through a fluent API and assembles
// them into SQL at build time. Clause methods return the receiver so calls
// chain; the first error sticks to the builder and surfaces at ToSQL, Build,
// or any terminal method.
type QueryBuilder struct {
	db  *DB
	tx  *sql.Tx
	ctx context.Context

	table   string
	fields  string
	joins   []string
	wheres  []condEntry
	orWheres []condEntry
	havings []frag
	groupBy string
	orderBy string
	limit   *limitClause
	unions  []unionEntry

	err error
}

// frag is a rendered clause piece together with the bind values its
// placeholders consume, in order.
type frag struct {
	sql    string
	params []any
}

// condEntry is either a rendered condition fragment or a deferred subquery
// comparison resolved when the outer query is assembled.
type condEntry struct {
	frag
	col string
	op  string
	sub *QueryBuilder
}

type unionEntry struct {
	sub *QueryBuilder
	all bool
}

// limitClause holds the row limit as data; the dialect renders it at
// assembly since the SQL form differs per database.
type limitClause struct {
	count  int
	offset int
}

// From starts a query builder for the given table. The table reference may
// carry an alias ("users u" or "users AS u"). Optional fields seed the
// projection; the default is "*".
func (db *DB) From(table string, fields ...string) *QueryBuilder {
	qb := &QueryBuilder{db: db, fields: "*"}
	qb.setTable(table)
	if len(fields) > 0 {
		qb.Select(fields...)
	}
	return qb
}

// From starts a query builder bound to the transaction.
func (tx *Tx) From(table string, fields ...string) *QueryBuilder {
	qb := tx.db.From(table, fields...)
	qb.tx = tx.tx
	qb.ctx = tx.ctx
	return qb
}

// WithContext sets the context used for execution and tracing.
func (qb *QueryBuilder) WithContext(ctx context.Context) *QueryBuilder {
	qb.ctx = ctx
	return qb
}

// Err returns the first error recorded by a clause method, if any.
func (qb *QueryBuilder) Err() error {
	return qb.err
}

func (qb *QueryBuilder) fail(err error) *QueryBuilder {
	if qb.err == nil {
		qb.err = err
	}
	return qb
}

func (qb *QueryBuilder) setTable(table string) {
	name, alias, err := security.ParseTableRef(table)
	if err != nil {
		qb.fail(err)
		return
	}
	if alias != "" {
		qb.table = name + " AS " + alias
	} else {
		qb.table = name
	}
}

// Select replaces the projection. Column names are validated; calling with no
// arguments resets to "*".
func (qb *QueryBuilder) Select(columns ...string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if len(columns) == 0 {
		qb.fields = "*"
		return qb
	}
	for _, col := range columns {
		if !security.ValidColumn(col) {
			return qb.fail(fmt.Errorf("%w: select column %q", ErrInvalidIdentifier, col))
		}
	}
	qb.fields = strings.Join(columns, ", ")
	return qb
}

// SelectRaw appends an expression to the projection, e.g. an aggregate with
// an alias: SelectRaw("SUM(total) AS spent"). The expression is audited for
// injection patterns rather than validated as an identifier.
func (qb *QueryBuilder) SelectRaw(expr string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if err := security.CheckFragment(expr); err != nil {
		return qb.fail(err)
	}
	if qb.fields == "" || qb.fields == "*" {
		qb.fields = expr
	} else {
		qb.fields += ", " + expr
	}
	return qb
}

// Join appends a join clause. joinType is LEFT, RIGHT, INNER or empty
// (defaults to INNER); the ON fragment is audited for injection patterns.
func (qb *QueryBuilder) Join(joinType, table, on string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	name, alias, err := security.ParseTableRef(table)
	if err != nil {
		return qb.fail(err)
	}
	if err := security.CheckFragment(on); err != nil {
		return qb.fail(err)
	}
	kind := strings.ToUpper(strings.TrimSpace(joinType))
	if kind == "" {
		kind = "INNER"
	}
	ref := name
	if alias != "" {
		ref = name + " AS " + alias
	}
	qb.joins = append(qb.joins, kind+" JOIN "+ref+" ON "+on)
	return qb
}

// JoinLeft appends a LEFT JOIN.
func (qb *QueryBuilder) JoinLeft(table, on string) *QueryBuilder {
	return qb.Join("LEFT", table, on)
}

// JoinRight appends a RIGHT JOIN.
func (qb *QueryBuilder) JoinRight(table, on string) *QueryBuilder {
	return qb.Join("RIGHT", table, on)
}

// JoinInner appends an INNER JOIN.
func (qb *QueryBuilder) JoinInner(table, on string) *QueryBuilder {
	return qb.Join("INNER", table, on)
}

// Where adds a condition to the AND group. Accepted forms:
//
//	Where("age", 18)                       equality
//	Where("age", ">", 18)                  explicit operator
//	Where("age >", 18)                     operator embedded in the field
//	Where("deleted_at", nil)               IS NULL
//	Where("role", []any{"admin", "ops"})   IN
//	Where("score", []any{10, "><", 20})    BETWEEN
//	Where("!role", "admin")                negated ("role <> ?")
//	Where("status", In("a", "b"))          explicit Cond variant
func (qb *QueryBuilder) Where(field string, args ...any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field, args, false)
}

// OrWhere adds a condition to the OR group. At assembly the OR group is
// parenthesized and ANDed after the AND group.
func (qb *QueryBuilder) OrWhere(field string, args ...any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field, args, false)
}

// WhereNot adds a negated condition to the AND group.
func (qb *QueryBuilder) WhereNot(field string, args ...any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field, args, true)
}

// OrWhereNot adds a negated condition to the OR group.
func (qb *QueryBuilder) OrWhereNot(field string, args ...any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field, args, true)
}

func (qb *QueryBuilder) addWhere(group *[]condEntry, field string, args []any, negated bool) *QueryBuilder {
	if qb.err != nil {
		return qb
	}

	field = strings.TrimSpace(field)
	if strings.HasPrefix(field, "!") {
		field = strings.TrimSpace(strings.TrimPrefix(field, "!"))
		negated = !negated
	}

	var cond Cond
	switch len(args) {
	case 1:
		col, op := splitFieldOperator(field)
		resolved, err := resolveCond(op, args[0])
		if err != nil {
			return qb.fail(err)
		}
		field = col
		cond = resolved
	case 2:
		op, ok := args[0].(string)
		if !ok {
			return qb.fail(fmt.Errorf("%w: operator must be a string, got %T", ErrInvalidConditionShape, args[0]))
		}
		cond = RawOp(op, args[1])
	default:
		return qb.fail(fmt.Errorf("%w: expected 1 or 2 condition arguments, got %d", ErrInvalidConditionShape, len(args)))
	}

	if negated {
		cond = cond.negate()
	}

	sqlFrag, params, err := cond.encode(field)
	if err != nil {
		return qb.fail(err)
	}
	*group = append(*group, condEntry{frag: frag{sql: sqlFrag, params: params}})
	return qb
}

// WhereIn matches rows where field is one of values.
func (qb *QueryBuilder) WhereIn(field string, values ...any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" IN", []any{values}, false)
}

// WhereNotIn matches rows where field is none of values.
func (qb *QueryBuilder) WhereNotIn(field string, values ...any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" IN", []any{values}, true)
}

// OrWhereIn adds an IN condition to the OR group.
func (qb *QueryBuilder) OrWhereIn(field string, values ...any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" IN", []any{values}, false)
}

// OrWhereNotIn adds a NOT IN condition to the OR group.
func (qb *QueryBuilder) OrWhereNotIn(field string, values ...any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" IN", []any{values}, true)
}

// WhereBetween matches rows where field lies in [lo, hi].
func (qb *QueryBuilder) WhereBetween(field string, lo, hi any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" BETWEEN", []any{[]any{lo, hi}}, false)
}

// WhereNotBetween matches rows where field lies outside [lo, hi].
func (qb *QueryBuilder) WhereNotBetween(field string, lo, hi any) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" BETWEEN", []any{[]any{lo, hi}}, true)
}

// OrWhereBetween adds a BETWEEN condition to the OR group.
func (qb *QueryBuilder) OrWhereBetween(field string, lo, hi any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" BETWEEN", []any{[]any{lo, hi}}, false)
}

// OrWhereNotBetween adds a NOT BETWEEN condition to the OR group.
func (qb *QueryBuilder) OrWhereNotBetween(field string, lo, hi any) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" BETWEEN", []any{[]any{lo, hi}}, true)
}

// WhereNull matches rows where field is NULL.
func (qb *QueryBuilder) WhereNull(field string) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" IS", []any{nil}, false)
}

// WhereNotNull matches rows where field is not NULL.
func (qb *QueryBuilder) WhereNotNull(field string) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" IS", []any{nil}, true)
}

// OrWhereNull adds an IS NULL test to the OR group.
func (qb *QueryBuilder) OrWhereNull(field string) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" IS", []any{nil}, false)
}

// OrWhereNotNull adds an IS NOT NULL test to the OR group.
func (qb *QueryBuilder) OrWhereNotNull(field string) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" IS", []any{nil}, true)
}

// WhereLike matches rows where field matches the LIKE pattern.
func (qb *QueryBuilder) WhereLike(field, pattern string) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" LIKE", []any{pattern}, false)
}

// WhereNotLike matches rows where field does not match the LIKE pattern.
func (qb *QueryBuilder) WhereNotLike(field, pattern string) *QueryBuilder {
	return qb.addWhere(&qb.wheres, field+" LIKE", []any{pattern}, true)
}

// OrWhereLike adds a LIKE condition to the OR group.
func (qb *QueryBuilder) OrWhereLike(field, pattern string) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" LIKE", []any{pattern}, false)
}

// OrWhereNotLike adds a NOT LIKE condition to the OR group.
func (qb *QueryBuilder) OrWhereNotLike(field, pattern string) *QueryBuilder {
	return qb.addWhere(&qb.orWheres, field+" LIKE", []any{pattern}, true)
}

// WhereSub compares col against a subquery: col op (SELECT ...). The
// subquery is assembled when the outer query is, so its placeholders splice
// into the outer parameter order at the position of the opening parenthesis.
func (qb *QueryBuilder) WhereSub(col, op string, sub *QueryBuilder) *QueryBuilder {
	return qb.addSub(&qb.wheres, col, op, sub)
}

// OrWhereSub adds a subquery comparison to the OR group.
func (qb *QueryBuilder) OrWhereSub(col, op string, sub *QueryBuilder) *QueryBuilder {
	return qb.addSub(&qb.orWheres, col, op, sub)
}

// WhereSubFn builds the subquery through a callback invoked with a fresh
// builder for the named table, bound to the same executor.
func (qb *QueryBuilder) WhereSubFn(col, op, table string, fn func(*QueryBuilder)) *QueryBuilder {
	return qb.addSub(&qb.wheres, col, op, qb.child(table, fn))
}

// OrWhereSubFn adds a callback-built subquery comparison to the OR group.
func (qb *QueryBuilder) OrWhereSubFn(col, op, table string, fn func(*QueryBuilder)) *QueryBuilder {
	return qb.addSub(&qb.orWheres, col, op, qb.child(table, fn))
}

func (qb *QueryBuilder) child(table string, fn func(*QueryBuilder)) *QueryBuilder {
	sub := &QueryBuilder{db: qb.db, tx: qb.tx, ctx: qb.ctx, fields: "*"}
	sub.setTable(table)
	fn(sub)
	return sub
}

func (qb *QueryBuilder) addSub(group *[]condEntry, col, op string, sub *QueryBuilder) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if err := security.ValidateIdentifier(col); err != nil {
		return qb.fail(err)
	}
	up := strings.ToUpper(strings.TrimSpace(op))
	if !validOperator(up) && up != "NOT IN" {
		return qb.fail(fmt.Errorf("%w: subquery operator %q", ErrInvalidConditionShape, op))
	}
	if sub == nil {
		return qb.fail(fmt.Errorf("%w: nil subquery", ErrInvalidConditionShape))
	}
	*group = append(*group, condEntry{col: col, op: up, sub: sub})
	return qb
}

// GroupBy sets the grouping columns.
func (qb *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if len(columns) == 0 {
		return qb.fail(fmt.Errorf("%w: GROUP BY requires at least one column", ErrInvalidConditionShape))
	}
	for _, col := range columns {
		if err := security.ValidateIdentifier(col); err != nil {
			return qb.fail(err)
		}
	}
	qb.groupBy = strings.Join(columns, ", ")
	return qb
}

// Having appends a raw HAVING fragment joined with AND. The fragment is
// audited for injection patterns; aggregate expressions like "COUNT(*) > ?"
// pass the audit since they carry no literal values.
func (qb *QueryBuilder) Having(fragment string, params ...any) *QueryBuilder {
	return qb.addHaving("AND", fragment, params)
}

// OrHaving appends a raw HAVING fragment joined with OR.
func (qb *QueryBuilder) OrHaving(fragment string, params ...any) *QueryBuilder {
	return qb.addHaving("OR", fragment, params)
}

func (qb *QueryBuilder) addHaving(connective, fragment string, params []any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if err := security.CheckFragment(fragment); err != nil {
		return qb.fail(err)
	}
	qb.havings = append(qb.havings, frag{sql: connective + " " + fragment, params: params})
	return qb
}

// OrderBy sets the ordering. Only the first token of direction is
// considered; anything other than DESC (case-insensitive) renders as ASC.
func (qb *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if err := security.ValidateIdentifier(field); err != nil {
		return qb.fail(err)
	}
	dir := "ASC"
	if tokens := strings.Fields(direction); len(tokens) > 0 && strings.EqualFold(tokens[0], "DESC") {
		dir = "DESC"
	}
	qb.orderBy = field + " " + dir
	return qb
}

// Limit sets the row limit and optional offset. The clause renders in the
// dialect's form: "LIMIT offset, count" for MySQL and SQLite,
// "LIMIT count OFFSET offset" for PostgreSQL.
func (qb *QueryBuilder) Limit(count int, offset ...int) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	off := 0
	if len(offset) > 0 {
		off = offset[0]
	}
	qb.limit = &limitClause{count: count, offset: off}
	return qb
}

// Union appends a UNION with the given subquery. The subquery is assembled
// at build time and wrapped in parentheses; its parameters follow the outer
// query's in order.
func (qb *QueryBuilder) Union(sub *QueryBuilder) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if sub == nil {
		return qb.fail(fmt.Errorf("%w: nil union subquery", ErrInvalidConditionShape))
	}
	qb.unions = append(qb.unions, unionEntry{sub: sub})
	return qb
}

// UnionAll appends a UNION ALL with the given subquery.
func (qb *QueryBuilder) UnionAll(sub *QueryBuilder) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if sub == nil {
		return qb.fail(fmt.Errorf("%w: nil union subquery", ErrInvalidConditionShape))
	}
	qb.unions = append(qb.unions, unionEntry{sub: sub, all: true})
	return qb
}

// UnionFn appends a UNION built through a callback. The callback receives a
// fresh builder seeded with the parent's table and projection.
func (qb *QueryBuilder) UnionFn(fn func(*QueryBuilder)) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	qb.unions = append(qb.unions, unionEntry{sub: qb.seeded(fn)})
	return qb
}

// UnionAllFn appends a UNION ALL built through a callback.
func (qb *QueryBuilder) UnionAllFn(fn func(*QueryBuilder)) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	qb.unions = append(qb.unions, unionEntry{sub: qb.seeded(fn), all: true})
	return qb
}

func (qb *QueryBuilder) seeded(fn func(*QueryBuilder)) *QueryBuilder {
	sub := &QueryBuilder{db: qb.db, tx: qb.tx, ctx: qb.ctx, table: qb.table, fields: qb.fields}
	fn(sub)
	return sub
}
