package search

import (
	"regexp"
	"strings"
)

const maxQueryLength = 500

var unsafeQueryChars = regexp.MustCompile(`[\x00-\x1f<>]`)

// SanitizeQuery strips control characters and angle brackets and caps the length before a
// model-supplied query reaches the search API.
func SanitizeQuery(q string) string {
	q = unsafeQueryChars.ReplaceAllString(strings.TrimSpace(q), "")
	if r := []rune(q); len(r) > maxQueryLength {
		q = string(r[:maxQueryLength])
	}
	return q
}
