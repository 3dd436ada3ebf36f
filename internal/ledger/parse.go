package ledger

import (
	"strconv"
	"strings"
)

// parseFloatOr parses a string as a float64, returning def if parsing fails.
// Malformed costs must never abort a run.
func parseFloatOr(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// parseBoolFlag accepts the truthy spellings seen across ledger exports.
func parseBoolFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

// normalizeCol lowercases and trims a header name for column matching.
func normalizeCol(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapColumns builds a normalized column name → index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getCol gets a column value by normalized name, empty when absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// firstNonEmptyCol returns the first non-empty value among the named columns.
// Used for columns that changed names between export generations
// (e.g. "buyer_id" vs the older "char_id").
func firstNonEmptyCol(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getCol(record, colIdx, name); v != "" {
			return v
		}
	}
	return ""
}
