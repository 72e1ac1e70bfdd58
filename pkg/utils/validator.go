package utils

import "strings"

// IsEmpty reports whether s contains nothing but whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Truncate shortens s to max runes for log previews.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
