// Package utils holds small helpers shared across packages that don't
// warrant their own package.
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// suspiciousPatterns flags request bodies that look like an injection
// attempt rather than a genuine chat query, so the HTTP surface can reject
// them before they reach the LLM or the search index.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on(load|error|click)\s*=`),
}

// ValidateInput rejects invalid UTF-8, control characters (other than
// tab/newline/CR) and obvious script-injection patterns. It returns the
// trimmed input and whether it passed; empty input passes.
func ValidateInput(input string) (string, bool) {
	if input == "" {
		return "", true
	}
	if !utf8.ValidString(input) {
		return "", false
	}
	for _, r := range input {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return "", false
		}
	}
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(input) {
			return "", false
		}
	}
	return strings.TrimSpace(input), true
}

// SanitizeForLog strips newlines and control characters from a value before
// it is written to a structured log field, so a crafted query cannot forge
// extra log lines.
func SanitizeForLog(input string) string {
	if input == "" {
		return ""
	}
	replacer := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")
	sanitized := replacer.Replace(input)
	var b strings.Builder
	for _, r := range sanitized {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
