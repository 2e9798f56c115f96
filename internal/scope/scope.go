// Package scope decides whether a lifecycle event belongs to a tracked survey.
package scope

import (
	"strings"
	"unicode"
)

// Parse strips every whitespace rune from raw and splits it on commas.
// An empty result means "track all surveys".
func Parse(raw string) []string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if stripped == "" {
		return nil
	}
	return strings.Split(stripped, ",")
}

// InScope reports whether surveyID is admitted by the allow-list raw.
// Matching is exact; there is no prefix matching.
func InScope(surveyID, raw string) bool {
	ids := Parse(raw)
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == surveyID {
			return true
		}
	}
	return false
}
