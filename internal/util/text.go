package util

import "strings"

// SanitizePostgresText drops NUL bytes and invalid UTF-8, which text
// columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
