package util

import "strings"

// CollapseWhitespace flattens newlines and repeated spaces into single
// spaces. Model output that feeds node and edge descriptions goes through
// this so merged descriptions stay on one line.
func CollapseWhitespace(value string) string {
	if value == "" {
		return value
	}

	value = strings.ReplaceAll(value, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.Join(strings.Fields(value), " ")
}

// Truncate cuts s at limit bytes and appends marker when anything was cut.
// The cut backs off to a rune boundary so the result stays valid UTF-8.
// A limit <= 0 returns s unchanged.
func Truncate(s string, limit int, marker string) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && s[limit]&0xC0 == 0x80 {
		limit--
	}
	return s[:limit] + marker
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
