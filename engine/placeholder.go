package engine

import "regexp"

// Placeholder is the reserved relation name that incoming query text uses to
// reference its source, whatever that source turns out to be.
const Placeholder = "df"

var placeholderRe = regexp.MustCompile(`\bdf\b`)

// Substitute replaces every standalone occurrence of the placeholder with
// relation. Identifiers merely containing "df" are left alone.
func Substitute(query, relation string) string {
	return placeholderRe.ReplaceAllString(query, relation)
}
