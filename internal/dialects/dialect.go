// Package dialects provides database-specific SQL dialect implementations for
// MySQL, PostgreSQL, and SQLite, handling identifier quoting, placeholder
// numbering, and INSERT id retrieval.
package dialects

// Dialect defines database-specific behaviors.
type Dialect interface {
	QuoteIdentifier(string) string
	Placeholder(int) string
	// LimitOffset renders the row limit clause. MySQL and SQLite accept the
	// comma form, PostgreSQL only LIMIT n OFFSET m.
	LimitOffset(count, offset int) string
	// ReturningClause returns the clause appended to an INSERT so the new
	// primary key can be read back, or "" when the driver reports it via
	// LastInsertId.
	ReturningClause(pk string) string
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// Lookup retrieves a registered dialect by driver name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}
