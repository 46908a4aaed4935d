package util

import (
	"regexp"
	"strings"
)

var controlRuns = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog flattens user-supplied text into a single log-safe line.
// Newlines and runs of other control characters collapse to one space each.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return controlRuns.ReplaceAllString(s, " ")
}
