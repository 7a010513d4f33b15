package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// maskValue replaces sensitive parameter values in log output.
const maskValue = "***REDACTED***"

// Sanitizer masks sensitive data in query parameters so secrets never reach
// log output. A parameter is considered sensitive when the SQL text directly
// preceding its placeholder names a sensitive column.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// defaultSensitiveFields are column-name fragments treated as sensitive when
// no custom list is supplied.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

// NewSanitizer creates a sanitizer for the given sensitive field names.
// An empty list selects the default set.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = defaultSensitiveFields
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(field)+`\b`))
	}
	return &Sanitizer{patterns: patterns}
}

// MaskParams returns a copy of params with sensitive values replaced by the
// mask value. The original slice is not modified.
//
// For INSERT statements the parenthesized column list maps positionally onto
// the value placeholders, including multi-row inserts. For everything else a
// placeholder is masked when the clause text since the previous placeholder
// names a sensitive column ("password = ?").
func (s *Sanitizer) MaskParams(sql string, params []any) []any {
	if len(params) == 0 || !s.hasSensitive(sql) {
		return params
	}

	masked := make([]any, len(params))
	copy(masked, params)

	if cols, ok := insertColumns(sql); ok {
		for i := range masked {
			if s.sensitiveIn(cols[i%len(cols)]) {
				masked[i] = maskValue
			}
		}
		return masked
	}

	idx := 0
	for pos := 0; idx < len(masked); idx++ {
		// Placeholders are "?" or, after renumbering, "$n".
		next := strings.IndexAny(sql[pos:], "?$")
		if next < 0 {
			break
		}
		next += pos
		if s.sensitiveIn(sql[pos:next]) {
			masked[idx] = maskValue
		}
		pos = next + 1
	}
	return masked
}

// insertColumns extracts the column list of an INSERT statement.
func insertColumns(sql string) ([]string, bool) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "INSERT") {
		return nil, false
	}
	open := strings.IndexByte(sql, '(')
	if open < 0 {
		return nil, false
	}
	end := strings.IndexByte(sql[open:], ')')
	if end < 0 {
		return nil, false
	}
	cols := strings.Split(sql[open+1:open+end], ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols, len(cols) > 0
}

// hasSensitive reports whether the SQL mentions any sensitive column at all.
func (s *Sanitizer) hasSensitive(sql string) bool {
	return s.sensitiveIn(sql)
}

// sensitiveIn reports whether the text names a sensitive column.
func (s *Sanitizer) sensitiveIn(text string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// FormatParams renders a parameter list for log output.
func (s *Sanitizer) FormatParams(params []any) string {
	if len(params) == 0 {
		return "[]"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
