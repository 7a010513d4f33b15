package core

import "database/sql"

// NullStringMap is a generic row representation mapping column names to
// nullable string values. Useful for ad-hoc queries with no matching struct.
type NullStringMap map[string]sql.NullString

// Get returns the value for a column and whether the column is present.
func (m NullStringMap) Get(column string) (sql.NullString, bool) {
	v, ok := m[column]
	return v, ok
}

// String returns the column's string value, or "" when absent or NULL.
func (m NullStringMap) String(column string) string {
	if v, ok := m[column]; ok && v.Valid {
		return v.String
	}
	return ""
}

// IsNull reports whether the column is absent or NULL.
func (m NullStringMap) IsNull(column string) bool {
	v, ok := m[column]
	return !ok || !v.Valid
}

// Has reports whether the column is present.
func (m NullStringMap) Has(column string) bool {
	_, ok := m[column]
	return ok
}
