// Package reader turns EPUB containers into chapter texts and splits those
// texts into bounded-length excerpts.
package reader

import (
	"strings"
	"unicode"
)

// DefaultTargetWords is the excerpt size used when the caller does not pick one.
const DefaultTargetWords = 300

// Book holds what survives extraction: a title and one plain-text entry per
// kept spine document, in reading order.
type Book struct {
	Title    string
	Chapters []string
}

// ParseText splits text into whitespace-delimited words. No-break spaces
// do not delimit.
func ParseText(text string) []string {
	return strings.FieldsFunc(text, isSpace)
}

// isSpace reports whether r separates words. A no-break space binds the
// words on either side, the way it does in the source markup.
func isSpace(r rune) bool {
	switch r {
	case '\u00a0', '\u2007', '\u202f':
		return false
	}
	return unicode.IsSpace(r)
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(ParseText(text))
}
