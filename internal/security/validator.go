// Package security provides identifier validation and raw-fragment auditing
// for Squill. Everything a caller supplies as a table, column, or raw WHERE
// fragment passes through here before it reaches generated SQL.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a table or column name fails the
// identifier pattern.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrUnsafeFragment is returned when a raw SQL fragment matches a known
// injection pattern.
var ErrUnsafeFragment = errors.New("unsafe sql fragment")

var (
	// identifierRegex validates table and column names. Dots support
	// table.column references.
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

	// aliasRegex matches "name alias" and "name AS alias" forms.
	aliasRegex = regexp.MustCompile(`(?i)^([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\s+(?:AS\s+)?([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ValidateIdentifier checks that name is a plain SQL identifier, optionally
// dot-qualified. Returns an error wrapping ErrInvalidIdentifier otherwise.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if len(name) > 128 {
		return fmt.Errorf("%w: %q exceeds 128 characters", ErrInvalidIdentifier, name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ParseTableRef validates a table reference that may carry an alias.
// Accepted forms: "users", "users u", "users AS u".
func ParseTableRef(ref string) (name, alias string, err error) {
	ref = strings.TrimSpace(ref)
	if identifierRegex.MatchString(ref) {
		return ref, "", nil
	}
	if m := aliasRegex.FindStringSubmatch(ref); m != nil {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("%w: table reference %q", ErrInvalidIdentifier, ref)
}

// ValidColumn reports whether a select-list token is acceptable: "*",
// an identifier, or an identifier with an optional alias.
func ValidColumn(col string) bool {
	col = strings.TrimSpace(col)
	if col == "*" {
		return true
	}
	if strings.HasSuffix(col, ".*") {
		return identifierRegex.MatchString(strings.TrimSuffix(col, ".*"))
	}
	return identifierRegex.MatchString(col) || aliasRegex.MatchString(col)
}

// FilterColumns drops select-list tokens that fail ValidColumn. A nil result
// means nothing survived and the caller should fall back to "*".
func FilterColumns(cols []string) []string {
	var kept []string
	for _, col := range cols {
		if ValidColumn(col) {
			kept = append(kept, strings.TrimSpace(col))
		}
	}
	return kept
}

// fragmentPatterns are injection constructs rejected in raw WHERE and HAVING
// fragments. Values belong in bind parameters, so none of these have a
// legitimate use inside a fragment.
var fragmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
	regexp.MustCompile(`;`),
	regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`),
	regexp.MustCompile(`(?i);\s*(DROP|DELETE|TRUNCATE|ALTER|CREATE)\b`),
	regexp.MustCompile(`(?i)\b(PG_SLEEP|BENCHMARK|XP_CMDSHELL|SP_EXECUTESQL)\s*\(`),
	regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`),
	regexp.MustCompile(`'`),
}

// CheckFragment audits a raw SQL fragment supplied by the caller.
// Returns an error wrapping ErrUnsafeFragment on the first match.
func CheckFragment(frag string) error {
	for _, pattern := range fragmentPatterns {
		if pattern.MatchString(frag) {
			return fmt.Errorf("%w: %q", ErrUnsafeFragment, frag)
		}
	}
	return nil
}
