package surface

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/metcalfc/spoon/internal/reader"
)

// PreviewRunes is the length of list previews in brief mode.
const PreviewRunes = 120

// FormatExcerpt renders excerpt i (0-based) the way it is pasted into the
// assistant: "[N]" on its own line, then the text.
func FormatExcerpt(i int, text string) string {
	return fmt.Sprintf("[%d]\n%s", i+1, text)
}

// ContextText renders every excerpt up to and including current, followed
// by a note telling the assistant how far the reader has got.
func ContextText(segments []string, current int) string {
	if len(segments) == 0 {
		return ""
	}
	current = Clamp(current, len(segments))

	parts := make([]string, 0, current+1)
	for i := 0; i <= current; i++ {
		parts = append(parts, FormatExcerpt(i, segments[i]))
	}
	return strings.Join(parts, "\n\n") + fmt.Sprintf(
		"\n\n---\nThat is everything I have read so far (excerpts 1-%d of %d). Please keep helping me based on it.",
		current+1, len(segments))
}

// Preview shortens text to max runes, marking the cut with "...".
func Preview(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// Clamp limits i to [0, n). It returns 0 when n is 0.
func Clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Percent returns progress through n excerpts at index i.
func Percent(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i + 1) * 100 / n
}

// Chapter summarises one chapter for listings.
type Chapter struct {
	Number  int
	Preview string
	Words   int
	Text    string
}

// Chapters lists the chapters of r. It reports false when the record does
// not carry chapter texts.
func Chapters(r Ready) ([]Chapter, bool) {
	if r.Chapters == nil {
		return nil, false
	}
	out := make([]Chapter, len(r.Chapters))
	for i, text := range r.Chapters {
		out[i] = Chapter{
			Number:  i + 1,
			Preview: Preview(text, PreviewRunes),
			Words:   reader.CountWords(text),
			Text:    text,
		}
	}
	return out, true
}
