package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CollapseSpace folds runs of whitespace into single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// VisibleText normalizes rendered page text: blank lines are dropped, intra-line
// whitespace is collapsed, and the result is bounded to limit bytes.
func VisibleText(rendered string, limit int) string {
	lines := strings.Split(rendered, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = CollapseSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return Truncate(strings.Join(kept, "\n"), limit)
}
