// Package security keeps the coach API bearer token out of logs and
// terminal output.
package security

import (
	"regexp"
	"strings"
)

// secretPatterns match credential material that can leak through error
// messages, most commonly a server echoing the Authorization header back
// in an error body.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer)\s+([A-Za-z0-9._~+/=-]{8,})`),
	regexp.MustCompile(`(?i)(token|api[_-]?key|secret|password)["']?[=:]\s*["']?([^\s"',}]+)`),
}

// MaskCredential obscures a credential, keeping just enough of the ends
// to identify which one it was.
func MaskCredential(value string) string {
	switch {
	case len(value) == 0:
		return ""
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:2] + strings.Repeat("*", len(value)-2)
	default:
		return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
	}
}

// Redact masks any credential material found in the input. Safe to call
// on arbitrary server responses before logging or display.
func Redact(input string) string {
	result := input
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			for _, sep := range []string{" ", "=", ":"} {
				if idx := strings.LastIndex(match, sep); idx >= 0 {
					return match[:idx+1] + MaskCredential(strings.Trim(match[idx+1:], "\"' "))
				}
			}
			return MaskCredential(match)
		})
	}
	return result
}
