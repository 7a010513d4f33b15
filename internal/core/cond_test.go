package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFieldOperator(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		wantCol  string
		wantOp   string
	}{
		{"no operator", "age", "age", ""},
		{"greater than", "age >", "age", ">"},
		{"greater equal", "age >=", "age", ">="},
		{"less than", "price <", "price", "<"},
		{"not equal", "status !=", "status", "!="},
		{"diamond", "status <>", "status", "<>"},
		{"like", "name LIKE", "name", "LIKE"},
		{"lowercase like", "name like", "name", "LIKE"},
		{"not like", "name NOT LIKE", "name", "NOT LIKE"},
		{"ilike", "name ILIKE", "name", "ILIKE"},
		{"not ilike", "name not ilike", "name", "NOT ILIKE"},
		{"between", "age BETWEEN", "age", "BETWEEN"},
		{"is", "deleted_at IS", "deleted_at", "IS"},
		{"is not", "deleted_at IS NOT", "deleted_at", "IS NOT"},
		{"in", "role IN", "role", "IN"},
		{"qualified column", "u.age >=", "u.age", ">="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, op := splitFieldOperator(tt.field)
			assert.Equal(t, tt.wantCol, col)
			assert.Equal(t, tt.wantOp, op)
		})
	}
}

func TestInferCond(t *testing.T) {
	t.Run("nil becomes null test", func(t *testing.T) {
		frag, params, err := inferCond(nil).encode("deleted_at")
		require.NoError(t, err)
		assert.Equal(t, "deleted_at IS NULL", frag)
		assert.Empty(t, params)
	})

	t.Run("scalar becomes equality", func(t *testing.T) {
		frag, params, err := inferCond(42).encode("age")
		require.NoError(t, err)
		assert.Equal(t, "age = ?", frag)
		assert.Equal(t, []any{42}, params)
	})

	t.Run("slice becomes IN", func(t *testing.T) {
		frag, params, err := inferCond([]any{"a", "b", "c"}).encode("role")
		require.NoError(t, err)
		assert.Equal(t, "role IN (?, ?, ?)", frag)
		assert.Equal(t, []any{"a", "b", "c"}, params)
	})

	t.Run("typed slice becomes IN", func(t *testing.T) {
		frag, params, err := inferCond([]int{1, 2}).encode("id")
		require.NoError(t, err)
		assert.Equal(t, "id IN (?, ?)", frag)
		assert.Equal(t, []any{1, 2}, params)
	})

	t.Run("marker slice becomes BETWEEN", func(t *testing.T) {
		frag, params, err := inferCond([]any{10, "><", 20}).encode("score")
		require.NoError(t, err)
		assert.Equal(t, "score BETWEEN ? AND ?", frag)
		assert.Equal(t, []any{10, 20}, params)
	})

	t.Run("three values without marker stay IN", func(t *testing.T) {
		frag, _, err := inferCond([]any{10, 15, 20}).encode("score")
		require.NoError(t, err)
		assert.Equal(t, "score IN (?, ?, ?)", frag)
	})

	t.Run("explicit cond passes through", func(t *testing.T) {
		frag, params, err := inferCond(NotIn(1, 2)).encode("id")
		require.NoError(t, err)
		assert.Equal(t, "id NOT IN (?, ?)", frag)
		assert.Equal(t, []any{1, 2}, params)
	})
}

func TestCondEncode(t *testing.T) {
	tests := []struct {
		name       string
		cond       Cond
		field      string
		wantSQL    string
		wantParams []any
	}{
		{"equals", Equals(1), "id", "id = ?", []any{1}},
		{"not equals", Not(1), "id", "id <> ?", []any{1}},
		{"in", In("a", "b"), "role", "role IN (?, ?)", []any{"a", "b"}},
		{"not in", NotIn("a"), "role", "role NOT IN (?)", []any{"a"}},
		{"between", Between(1, 9), "age", "age BETWEEN ? AND ?", []any{1, 9}},
		{"not between", NotBetween(1, 9), "age", "age NOT BETWEEN ? AND ?", []any{1, 9}},
		{"is null", IsNull(), "email", "email IS NULL", nil},
		{"is not null", IsNotNull(), "email", "email IS NOT NULL", nil},
		{"raw op", RawOp(">", 5), "age", "age > ?", []any{5}},
		{"raw op lowercase", RawOp("like", "%a%"), "name", "name LIKE ?", []any{"%a%"}},
		{"raw op not", RawOpNot("LIKE", "%a%"), "name", "name NOT LIKE ?", []any{"%a%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, params, err := tt.cond.encode(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, frag)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCondEncodeErrors(t *testing.T) {
	t.Run("empty IN list", func(t *testing.T) {
		_, _, err := In().encode("id")
		assert.ErrorIs(t, err, ErrInvalidConditionShape)
	})

	t.Run("empty NOT IN list", func(t *testing.T) {
		_, _, err := NotIn().encode("id")
		assert.ErrorIs(t, err, ErrInvalidConditionShape)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := RawOp("MATCHES", 1).encode("id")
		assert.ErrorIs(t, err, ErrInvalidConditionShape)
	})

	t.Run("invalid field", func(t *testing.T) {
		_, _, err := Equals(1).encode("id; DROP TABLE users")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestCondNegate(t *testing.T) {
	tests := []struct {
		name string
		cond Cond
		want condKind
	}{
		{"equals", Equals(1), kindNotEquals},
		{"not equals", Not(1), kindEquals},
		{"in", In(1), kindNotIn},
		{"not in", NotIn(1), kindIn},
		{"between", Between(1, 2), kindNotBetween},
		{"not between", NotBetween(1, 2), kindBetween},
		{"is null", IsNull(), kindIsNotNull},
		{"is not null", IsNotNull(), kindIsNull},
		{"raw op", RawOp(">", 1), kindRawOpNot},
		{"raw op not", RawOpNot(">", 1), kindRawOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.negate().kind)
		})
	}
}
