package automation

import "strings"

// ExpandTemplate substitutes {{key}} placeholders with values from data.
// Substitution is literal, case-sensitive and single-pass: a value that
// itself contains a placeholder token is inserted as-is, never expanded
// again. Unknown placeholders are left untouched.
func ExpandTemplate(tmpl string, data map[string]string) string {
	if len(data) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, len(data)*2)
	for key, val := range data {
		pairs = append(pairs, "{{"+key+"}}", val)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
