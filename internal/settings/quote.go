package settings

import "strings"

// Unquote trims surrounding whitespace and then one matching pair of
// double or single quotes. Launch arguments passed through shells and
// desktop launchers often keep their quoting.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
