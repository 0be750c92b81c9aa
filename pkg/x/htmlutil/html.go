package htmlutil

import (
	stdhtml "html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var htmlTagRe = regexp.MustCompile(`(?is)<[^>]*>`)

// CleanText normalizes a possibly-HTML string into a single-line plain text.
// It unescapes HTML entities, strips HTML tags, and collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = htmlTagRe.ReplaceAllString(s, " ")
	s = stdhtml.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes cuts s to at most max runes, appending "…" when cut.
// max <= 0 means no limit.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

// PreviewString trims s and cuts it to maxRunes for log lines.
func PreviewString(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	return TruncateRunes(strings.TrimSpace(s), maxRunes)
}
