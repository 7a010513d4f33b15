package dialects

import (
	"fmt"
	"strings"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
}

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// LimitOffset renders "LIMIT n OFFSET m"; PostgreSQL rejects the comma form.
func (d *PostgresDialect) LimitOffset(count, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", count, offset)
	}
	return fmt.Sprintf("LIMIT %d", count)
}

// ReturningClause returns a RETURNING clause; lib/pq does not support
// LastInsertId.
func (d *PostgresDialect) ReturningClause(pk string) string {
	return " RETURNING " + d.QuoteIdentifier(pk)
}
