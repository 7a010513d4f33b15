package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/corebit/squill/internal/security"
)

// condKind enumerates the fixed SQL predicate shapes.
type condKind int

const (
	kindEquals condKind = iota
	kindNotEquals
	kindIn
	kindNotIn
	kindBetween
	kindNotBetween
	kindIsNull
	kindIsNotNull
	kindRawOp
	kindRawOpNot
)

// betweenMarker is the middle element of a three-value evaluator that selects
// the BETWEEN shape: Where("created_at", []any{lo, "><", hi}).
const betweenMarker = "><"

// Cond is an explicit condition variant. Callers either construct one
// directly (Equals, In, Between, ...) or let Where infer it from a
// loosely-typed evaluator.
type Cond struct {
	kind   condKind
	op     string
	value  any
	list   []any
	lo, hi any
}

// Equals matches rows where the column equals the value.
func Equals(v any) Cond { return Cond{kind: kindEquals, value: v} }

// Not matches rows where the column differs from the value.
func Not(v any) Cond { return Cond{kind: kindNotEquals, value: v} }

// In matches rows where the column is one of the values.
func In(values ...any) Cond { return Cond{kind: kindIn, list: values} }

// NotIn matches rows where the column is none of the values.
func NotIn(values ...any) Cond { return Cond{kind: kindNotIn, list: values} }

// Between matches rows where the column lies in [lo, hi].
func Between(lo, hi any) Cond { return Cond{kind: kindBetween, lo: lo, hi: hi} }

// NotBetween matches rows where the column lies outside [lo, hi].
func NotBetween(lo, hi any) Cond { return Cond{kind: kindNotBetween, lo: lo, hi: hi} }

// IsNull matches rows where the column is NULL.
func IsNull() Cond { return Cond{kind: kindIsNull} }

// IsNotNull matches rows where the column is not NULL.
func IsNotNull() Cond { return Cond{kind: kindIsNotNull} }

// RawOp applies a comparison operator from the fixed operator set,
// e.g. RawOp(">", 18) or RawOp("LIKE", "%smith%").
func RawOp(op string, v any) Cond { return Cond{kind: kindRawOp, op: op, value: v} }

// RawOpNot applies a negated comparison operator, rendering NOT before the
// operator: RawOpNot("LIKE", p) becomes "col NOT LIKE ?".
func RawOpNot(op string, v any) Cond { return Cond{kind: kindRawOpNot, op: op, value: v} }

// negate flips a variant to its negated counterpart.
func (c Cond) negate() Cond {
	switch c.kind {
	case kindEquals:
		c.kind = kindNotEquals
	case kindNotEquals:
		c.kind = kindEquals
	case kindIn:
		c.kind = kindNotIn
	case kindNotIn:
		c.kind = kindIn
	case kindBetween:
		c.kind = kindNotBetween
	case kindNotBetween:
		c.kind = kindBetween
	case kindIsNull:
		c.kind = kindIsNotNull
	case kindIsNotNull:
		c.kind = kindIsNull
	case kindRawOp:
		c.kind = kindRawOpNot
	case kindRawOpNot:
		c.kind = kindRawOp
	}
	return c
}

// operators is the fixed comparison operator set, ordered longest first so
// the embedded-operator scan never matches a prefix of a longer operator.
var operators = []string{
	"NOT ILIKE", "NOT LIKE", "BETWEEN", "IS NOT",
	"ILIKE", "LIKE", ">=", "<=", "<>", "!=", "IS", "IN", ">", "<", "=",
}

// validOperator reports whether op (case-insensitive) is in the fixed set.
func validOperator(op string) bool {
	up := strings.ToUpper(strings.TrimSpace(op))
	for _, o := range operators {
		if o == up {
			return true
		}
	}
	return false
}

// splitFieldOperator parses the legacy "column OPERATOR" form, where the
// operator is embedded in the field string ("age >", "name LIKE"). Operators
// are matched space-delimited, longest first. Returns op == "" when the
// field carries no embedded operator.
func splitFieldOperator(field string) (col, op string) {
	padded := " " + field + " "
	upper := strings.ToUpper(padded)
	for _, o := range operators {
		if i := strings.Index(upper, " "+o+" "); i >= 0 {
			return strings.TrimSpace(padded[:i+1]), o
		}
	}
	return strings.TrimSpace(field), ""
}

// resolveCond turns a parsed operator token plus evaluator into a condition
// variant. An empty op means no embedded operator was present and the shape
// is inferred from the evaluator alone.
func resolveCond(op string, evaluator any) (Cond, error) {
	switch op {
	case "":
		return inferCond(evaluator), nil
	case "IS":
		if evaluator == nil {
			return IsNull(), nil
		}
		return RawOp(op, evaluator), nil
	case "IS NOT":
		if evaluator == nil {
			return IsNotNull(), nil
		}
		return RawOp(op, evaluator), nil
	case "IN":
		list, ok := toSlice(evaluator)
		if !ok {
			return Cond{}, fmt.Errorf("%w: IN requires a list, got %T", ErrInvalidConditionShape, evaluator)
		}
		return In(list...), nil
	case "BETWEEN":
		list, ok := toSlice(evaluator)
		if !ok || len(list) != 2 {
			return Cond{}, fmt.Errorf("%w: BETWEEN requires exactly two bounds", ErrInvalidConditionShape)
		}
		return Between(list[0], list[1]), nil
	default:
		return RawOp(op, evaluator), nil
	}
}

// inferCond maps a loosely-typed evaluator onto a condition variant:
// nil selects the NULL test, an existing Cond passes through, a three-value
// list with the "><" marker selects BETWEEN, any other list selects IN, and
// a scalar selects equality.
func inferCond(evaluator any) Cond {
	if evaluator == nil {
		return IsNull()
	}
	if c, ok := evaluator.(Cond); ok {
		return c
	}
	if list, ok := toSlice(evaluator); ok {
		if len(list) == 3 {
			if marker, ok := list[1].(string); ok && marker == betweenMarker {
				return Between(list[0], list[2])
			}
		}
		return In(list...)
	}
	return Equals(evaluator)
}

// toSlice converts a slice or array evaluator of any element type to []any.
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// encode renders the condition for field into a SQL fragment plus its bind
// values in placeholder order.
func (c Cond) encode(field string) (string, []any, error) {
	if err := security.ValidateIdentifier(field); err != nil {
		return "", nil, err
	}

	switch c.kind {
	case kindEquals:
		return field + " = ?", []any{c.value}, nil

	case kindNotEquals:
		return field + " <> ?", []any{c.value}, nil

	case kindIn, kindNotIn:
		if len(c.list) == 0 {
			// IN () is invalid SQL in the supported dialects.
			return "", nil, fmt.Errorf("%w: IN requires a non-empty value list", ErrInvalidConditionShape)
		}
		op := "IN"
		if c.kind == kindNotIn {
			op = "NOT IN"
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.list)), ", ")
		return fmt.Sprintf("%s %s (%s)", field, op, placeholders), append([]any(nil), c.list...), nil

	case kindBetween:
		return field + " BETWEEN ? AND ?", []any{c.lo, c.hi}, nil

	case kindNotBetween:
		return field + " NOT BETWEEN ? AND ?", []any{c.lo, c.hi}, nil

	case kindIsNull:
		return field + " IS NULL", nil, nil

	case kindIsNotNull:
		return field + " IS NOT NULL", nil, nil

	case kindRawOp, kindRawOpNot:
		if !validOperator(c.op) {
			return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidConditionShape, c.op)
		}
		op := strings.ToUpper(strings.TrimSpace(c.op))
		if c.kind == kindRawOpNot {
			op = "NOT " + op
		}
		return fmt.Sprintf("%s %s ?", field, op), []any{c.value}, nil
	}

	return "", nil, fmt.Errorf("%w: unknown condition kind", ErrInvalidConditionShape)
}
