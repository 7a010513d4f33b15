package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"} {
		t.Run(name, func(t *testing.T) {
			d, ok := Lookup(name)
			require.True(t, ok)
			assert.NotNil(t, d)
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		_, ok := Lookup("oracle")
		assert.False(t, ok)
	})
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		driver string
		in     string
		want   string
	}{
		{"mysql", "users", "`users`"},
		{"mysql", "weird`name", "`weird``name`"},
		{"postgres", "users", `"users"`},
		{"postgres", `weird"name`, `"weird""name"`},
		{"sqlite", "users", `"users"`},
	}

	for _, tt := range tests {
		t.Run(tt.driver+" "+tt.in, func(t *testing.T) {
			d, ok := Lookup(tt.driver)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.QuoteIdentifier(tt.in))
		})
	}
}

func TestPlaceholder(t *testing.T) {
	mysql, _ := Lookup("mysql")
	assert.Equal(t, "?", mysql.Placeholder(1))
	assert.Equal(t, "?", mysql.Placeholder(7))

	pg, _ := Lookup("postgres")
	assert.Equal(t, "$1", pg.Placeholder(1))
	assert.Equal(t, "$7", pg.Placeholder(7))

	sqlite, _ := Lookup("sqlite")
	assert.Equal(t, "?", sqlite.Placeholder(3))
}

func TestLimitOffset(t *testing.T) {
	tests := []struct {
		driver string
		count  int
		offset int
		want   string
	}{
		{"mysql", 10, 0, "LIMIT 0, 10"},
		{"mysql", 10, 20, "LIMIT 20, 10"},
		{"sqlite", 5, 0, "LIMIT 0, 5"},
		{"sqlite", 5, 15, "LIMIT 15, 5"},
		{"postgres", 10, 0, "LIMIT 10"},
		{"postgres", 10, 20, "LIMIT 10 OFFSET 20"},
		{"postgres", 1, 0, "LIMIT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.driver+" "+tt.want, func(t *testing.T) {
			d, ok := Lookup(tt.driver)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.LimitOffset(tt.count, tt.offset))
		})
	}
}

func TestReturningClause(t *testing.T) {
	mysql, _ := Lookup("mysql")
	assert.Empty(t, mysql.ReturningClause("id"))

	sqlite, _ := Lookup("sqlite")
	assert.Empty(t, sqlite.ReturningClause("id"))

	pg, _ := Lookup("postgres")
	assert.Equal(t, ` RETURNING "id"`, pg.ReturningClause("id"))
}
