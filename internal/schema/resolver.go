package schema

import "strings"

// FindColumn locates the raw column matching one of the alias patterns.
//
// Patterns are tried in order; an earlier pattern always beats a later one.
// For each pattern two passes run over the columns in table order:
//
//  1. exact: case-insensitive equality, no other normalization;
//  2. partial: both sides lowercased with spaces and underscores deleted,
//     match when the column contains the pattern as a substring.
//
// The partial pass for a pattern only runs after its exact pass found
// nothing in any column. Accented characters are NOT folded here; accent
// normalization belongs to the mapper's name normalizer, and keeping the
// resolver accent-sensitive is what makes the alias tables list both the
// accented and plain spellings.
func FindColumn(columns []string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		patternLower := strings.ToLower(pattern)

		for _, col := range columns {
			if strings.ToLower(col) == patternLower {
				return col, true
			}
		}

		patternNorm := squash(patternLower)
		for _, col := range columns {
			if strings.Contains(squash(strings.ToLower(col)), patternNorm) {
				return col, true
			}
		}
	}
	return "", false
}

// squash deletes spaces and underscores for the partial pass.
func squash(s string) string {
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, " ", "")
}

// accentFold replaces the specific accented characters seen in historical
// IPTU headers with ASCII equivalents. This is a fixed substitution table,
// not full Unicode normalization.
var accentFold = strings.NewReplacer(
	"ç", "c",
	"õ", "o",
	"é", "e",
	"á", "a",
	"ã", "a",
	"í", "i",
	"ú", "u",
	"ê", "e",
	"ô", "o",
)

// NormalizeName converts a raw source column name into the normalized form
// used as the key of the rename table: lowercase, trimmed, spaces replaced
// with underscores, known accents folded.
func NormalizeName(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return accentFold.Replace(s)
}
