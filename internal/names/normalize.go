// Package names holds the name normalization shared by every component that
// joins records by display or item name.
package names

import (
	"regexp"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases, trims, and collapses internal whitespace so that
// names from different sources compare equal.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	return multiSpaceRe.ReplaceAllString(s, " ")
}
