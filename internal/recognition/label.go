package recognition

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeLabel collapses whitespace and upper-cases an identity label so
// manifest entries, ledger agents and manual marks compare equal.
func NormalizeLabel(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	label := strings.Join(fields, " ")
	if strings.EqualFold(label, Unknown) {
		return ""
	}
	return cases.Upper(language.Und).String(label)
}
