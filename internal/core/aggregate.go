package core

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/corebit/squill/internal/security"
)

// Pagination describes one page of results.
type Pagination struct {
	Total       int64
	PerPage     int
	CurrentPage int
	LastPage    int
	From        int64
	To          int64
}

// snapshot copies the builder with the projection replaced, leaving the
// original untouched so terminal methods never mutate caller state. Clause
// slices are shared; snapshots are read-only.
func (qb *QueryBuilder) snapshot(fields string) *QueryBuilder {
	dup := *qb
	dup.fields = fields
	return &dup
}

// Get executes the query and scans all rows into dest.
func (qb *QueryBuilder) Get(dest any) error {
	q, err := qb.Build()
	if err != nil {
		return err
	}
	return q.All(dest)
}

// First executes the query limited to one row and scans it into dest.
// Returns ErrNoRows when nothing matches.
func (qb *QueryBuilder) First(dest any) error {
	dup := qb.snapshot(qb.fields)
	dup.limit = &limitClause{count: 1}
	q, err := dup.Build()
	if err != nil {
		return err
	}
	return q.One(dest)
}

// Rows executes the query and returns every row as a NullStringMap.
func (qb *QueryBuilder) Rows() ([]NullStringMap, error) {
	q, err := qb.Build()
	if err != nil {
		return nil, err
	}
	var out []NullStringMap
	if err := q.All(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count runs the query with the projection replaced by COUNT(*). Ordering
// and paging clauses are dropped since they cannot change the count.
func (qb *QueryBuilder) Count() (int64, error) {
	dup := qb.snapshot("COUNT(*)")
	dup.orderBy = ""
	dup.limit = nil
	q, err := dup.Build()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Scalar(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Sum runs the query with the projection replaced by SUM(column). An empty
// or all-NULL column sums to zero.
func (qb *QueryBuilder) Sum(column string) (float64, error) {
	return qb.aggregateFloat("SUM", column)
}

// Avg runs the query with the projection replaced by AVG(column).
func (qb *QueryBuilder) Avg(column string) (float64, error) {
	return qb.aggregateFloat("AVG", column)
}

func (qb *QueryBuilder) aggregateFloat(fn, column string) (float64, error) {
	if err := security.ValidateIdentifier(column); err != nil {
		return 0, err
	}
	dup := qb.snapshot(fmt.Sprintf("%s(%s)", fn, column))
	dup.orderBy = ""
	dup.limit = nil
	q, err := dup.Build()
	if err != nil {
		return 0, err
	}
	var v sql.NullFloat64
	if err := q.Scalar(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return v.Float64, nil
}

// Exists reports whether the query matches at least one row, using
// SELECT 1 ... LIMIT 1 so no row data is transferred.
func (qb *QueryBuilder) Exists() (bool, error) {
	dup := qb.snapshot("1")
	dup.orderBy = ""
	dup.limit = &limitClause{count: 1}
	q, err := dup.Build()
	if err != nil {
		return false, err
	}
	var one int
	err = q.Scalar(&one)
	if errors.Is(err, ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Paginate fetches page (1-based) with perPage rows into dest and returns
// the page descriptor. The total comes from a COUNT(*) over the same
// conditions.
func (qb *QueryBuilder) Paginate(perPage, page int, dest any) (*Pagination, error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("%w: per-page must be positive", ErrInvalidConditionShape)
	}
	if page < 1 {
		page = 1
	}

	total, err := qb.Count()
	if err != nil {
		return nil, err
	}

	offset := int64(page-1) * int64(perPage)
	dup := qb.snapshot(qb.fields)
	dup.limit = &limitClause{count: perPage, offset: (page - 1) * perPage}
	if err := dup.Get(dest); err != nil {
		return nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	p := &Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
	if total > 0 && offset < total {
		p.From = offset + 1
		p.To = offset + int64(perPage)
		if p.To > total {
			p.To = total
		}
	}
	return p, nil
}
