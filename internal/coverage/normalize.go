package coverage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeLabel trims a category label, collapses inner whitespace and
// title-cases it so that " federal " and "Federal" group together.
func NormalizeLabel(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	// Casers keep state between calls and cannot be shared across goroutines.
	return cases.Title(language.BrazilianPortuguese).String(strings.Join(fields, " "))
}
