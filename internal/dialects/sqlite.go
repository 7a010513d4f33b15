package dialects

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns SQLite placeholder format (always "?").
func (d *SQLiteDialect) Placeholder(_ int) string {
	return "?"
}

// LimitOffset renders the comma form, which SQLite accepts alongside OFFSET.
func (d *SQLiteDialect) LimitOffset(count, offset int) string {
	return fmt.Sprintf("LIMIT %d, %d", offset, count)
}

// ReturningClause returns "" because SQLite reports new ids via
// last_insert_rowid.
func (d *SQLiteDialect) ReturningClause(_ string) string {
	return ""
}
