package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldKey trims and lowercases an email or name for matching. Stores
// compare against the same function so accented values match everywhere.
func FoldKey(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// FoldSegment trims and uppercases a category segment.
func FoldSegment(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
