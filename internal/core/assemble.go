package core

import (
	"fmt"
	"strings"
)

// build assembles the clause containers into SQL text with "?" placeholders
// and the matching parameter vector. Assembly reads builder state without
// modifying it, so a builder can be assembled repeatedly and extended between
// assemblies. Parameters are collected in clause order: joins carry none,
// then WHERE (AND group before OR group), HAVING, then each union in
// sequence; nested subqueries splice their parameters at the position of
// their opening parenthesis.
func (qb *QueryBuilder) build() (string, []any, error) {
	if qb.err != nil {
		return "", nil, qb.err
	}
	if qb.table == "" {
		return "", nil, fmt.Errorf("%w: missing table", ErrInvalidIdentifier)
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("SELECT ")
	sb.WriteString(qb.fields)
	sb.WriteString(" FROM ")
	sb.WriteString(qb.table)

	for _, join := range qb.joins {
		sb.WriteByte(' ')
		sb.WriteString(join)
	}

	whereSQL, whereParams, err := qb.buildWhere()
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		params = append(params, whereParams...)
	}

	if qb.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(qb.groupBy)
	}

	if len(qb.havings) > 0 {
		sb.WriteString(" HAVING ")
		for i, h := range qb.havings {
			clause := h.sql
			if i == 0 {
				// The first entry's connective is structural, not rendered.
				clause = strings.TrimPrefix(strings.TrimPrefix(clause, "AND "), "OR ")
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteString(clause)
			params = append(params, h.params...)
		}
	}

	if qb.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(qb.orderBy)
	}

	if qb.limit != nil {
		sb.WriteByte(' ')
		sb.WriteString(qb.limitSQL())
	}

	for _, u := range qb.unions {
		subSQL, subParams, err := u.sub.build()
		if err != nil {
			return "", nil, err
		}
		if u.all {
			sb.WriteString(" UNION ALL (")
		} else {
			sb.WriteString(" UNION (")
		}
		sb.WriteString(subSQL)
		sb.WriteByte(')')
		params = append(params, subParams...)
	}

	return sb.String(), params, nil
}

// limitSQL renders the limit clause through the dialect. A builder without
// an executor falls back to the comma form.
func (qb *QueryBuilder) limitSQL() string {
	if qb.db != nil {
		return qb.db.dialect.LimitOffset(qb.limit.count, qb.limit.offset)
	}
	return fmt.Sprintf("LIMIT %d, %d", qb.limit.offset, qb.limit.count)
}

// buildWhere renders the two condition groups. Both present:
// "a1 AND a2 AND (o1 OR o2)"; a lone OR group renders unparenthesized.
func (qb *QueryBuilder) buildWhere() (string, []any, error) {
	andSQL, andParams, err := renderGroup(qb.wheres, " AND ")
	if err != nil {
		return "", nil, err
	}
	orSQL, orParams, err := renderGroup(qb.orWheres, " OR ")
	if err != nil {
		return "", nil, err
	}

	switch {
	case andSQL != "" && orSQL != "":
		return andSQL + " AND (" + orSQL + ")", append(andParams, orParams...), nil
	case andSQL != "":
		return andSQL, andParams, nil
	case orSQL != "":
		return orSQL, orParams, nil
	}
	return "", nil, nil
}

func renderGroup(entries []condEntry, sep string) (string, []any, error) {
	if len(entries) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(entries))
	var params []any
	for _, e := range entries {
		if e.sub != nil {
			subSQL, subParams, err := e.sub.build()
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, e.col+" "+e.op+" ("+subSQL+")")
			params = append(params, subParams...)
			continue
		}
		parts = append(parts, e.sql)
		params = append(params, e.params...)
	}
	return strings.Join(parts, sep), params, nil
}

// ToSQL returns the assembled SQL text with "?" placeholders, or the first
// error recorded by a clause method.
func (qb *QueryBuilder) ToSQL() (string, error) {
	sqlText, _, err := qb.build()
	return sqlText, err
}

// Bindings returns the parameter vector matching the placeholder order of
// ToSQL. A builder with a recorded error returns nil.
func (qb *QueryBuilder) Bindings() []any {
	_, params, err := qb.build()
	if err != nil {
		return nil
	}
	return params
}

// Build assembles the query and binds it to the builder's executor,
// renumbering placeholders when the dialect requires it.
func (qb *QueryBuilder) Build() (*Query, error) {
	sqlText, params, err := qb.build()
	if err != nil {
		return nil, err
	}
	if qb.db == nil {
		return nil, ErrConnectionUnavailable
	}
	return qb.db.newQuery(qb.ctx, qb.tx, sqlText, params), nil
}
