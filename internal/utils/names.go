package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpeciesName normalizes a species display name: trims and collapses
// whitespace and applies locale-aware title casing, so "mistling" and
// " MISTLING " both store as "Mistling".
func SpeciesName(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	for i, f := range fields {
		fields[i] = caser.String(strings.ToLower(f))
	}
	return strings.Join(fields, " ")
}
