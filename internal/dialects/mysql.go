package dialects

import (
	"fmt"
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// LimitOffset renders the MySQL comma form "LIMIT offset, count".
func (d *MySQLDialect) LimitOffset(count, offset int) string {
	return fmt.Sprintf("LIMIT %d, %d", offset, count)
}

// ReturningClause returns "" because MySQL reports new ids via LastInsertId.
func (d *MySQLDialect) ReturningClause(_ string) string {
	return ""
}
