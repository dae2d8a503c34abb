package reader

import (
	"strings"
	"unicode/utf8"
)

// Segment splits each chapter into excerpts of about target words and
// returns them flattened in chapter order. No excerpt spans two chapters.
// Blank chapters contribute nothing. A target below one falls back to
// DefaultTargetWords.
func Segment(chapters []string, target int) []string {
	if target < 1 {
		target = DefaultTargetWords
	}
	var all []string
	for _, ch := range chapters {
		trimmed := trimSpace(ch)
		if trimmed == "" {
			continue
		}
		all = append(all, SegmentChapter(trimmed, target)...)
	}
	return all
}

// SegmentChapter groups the sentences of one chapter into excerpts. A batch
// is closed before a sentence that would push it past target words, so an
// excerpt only exceeds target when it is a single long sentence.
func SegmentChapter(text string, target int) []string {
	var (
		segments []string
		batch    strings.Builder
		count    int
	)

	for _, sentence := range SplitSentences(text) {
		n := CountWords(sentence)
		if count > 0 && count+n > target {
			segments = append(segments, trimSpace(batch.String()))
			batch.Reset()
			count = 0
		}
		batch.WriteString(sentence)
		batch.WriteByte(' ')
		count += n
	}

	if rest := trimSpace(batch.String()); rest != "" {
		segments = append(segments, rest)
	}
	return segments
}

// SplitSentences breaks text after '.', '!' or '?' when the mark is followed
// by whitespace and then an ASCII uppercase letter. The whitespace between
// sentences is dropped; a no-break space does not count as whitespace.
// "Mr. smith" stays whole; "Mr. Smith" does not.
func SplitSentences(text string) []string {
	var out []string
	start := 0

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		next := skipSpace(text, end)
		if next == end || next >= len(text) || !isUpperASCII(text[next]) {
			continue
		}
		out = append(out, text[start:end])
		start = next
		i = next
	}

	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isSpace(r) {
			break
		}
		i += size
	}
	return i
}

func isUpperASCII(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
