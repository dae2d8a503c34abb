package reader

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/metcalfc/spoon/internal/epubtest"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "Ends with period.", []string{"Ends with period."}},
		{"no punctuation", "just some words", []string{"just some words"}},
		{"two sentences", "He left. She stayed.", []string{"He left.", "She stayed."}},
		{"lowercase continuation", "Mr. smith went. He left.", []string{"Mr. smith went.", "He left."}},
		{"abbreviation before capital", "Ask Mr. Smith now.", []string{"Ask Mr.", "Smith now."}},
		{"initialism", "The U.S. economy grew.", []string{"The U.S. economy grew."}},
		{"question and bang", "Really?! Yes. Why? Because!", []string{"Really?!", "Yes.", "Why?", "Because!"}},
		{"decimal", "Pi is 3.14 roughly. Pi is irrational.", []string{"Pi is 3.14 roughly.", "Pi is irrational."}},
		{"newline gap", "First line.\n\n   Second line.", []string{"First line.", "Second line."}},
		{"digit after stop", "Chapter ended. 2 more to go.", []string{"Chapter ended. 2 more to go."}},
		{"quote after stop", `He said. "Hello."`, []string{`He said. "Hello."`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSegmentChapter(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target int
		want   []string
	}{
		{
			name:   "fits in one",
			text:   "One two three. Four five.",
			target: 10,
			want:   []string{"One two three. Four five."},
		},
		{
			name:   "closes before overflow",
			text:   "One two three. Four five six. Seven.",
			target: 6,
			want:   []string{"One two three. Four five six.", "Seven."},
		},
		{
			name:   "exact fit stays together",
			text:   "One two. Three four.",
			target: 4,
			want:   []string{"One two. Three four."},
		},
		{
			name:   "long sentence stands alone",
			text:   "Short one. This sentence is much longer than the target allows. Tail.",
			target: 3,
			want:   []string{"Short one.", "This sentence is much longer than the target allows.", "Tail."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentChapter(tt.text, tt.target)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SegmentChapter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSegmentSkipsBlankChapters(t *testing.T) {
	got := Segment([]string{"", "   ", "Only chapter. Has text."}, 300)
	if len(got) != 1 || got[0] != "Only chapter. Has text." {
		t.Errorf("Segment() = %q", got)
	}
}

func TestSegmentDefaultTarget(t *testing.T) {
	got := Segment([]string{epubtest.Prose(600)}, 0)
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2", len(got))
	}
	for i, s := range got {
		if n := CountWords(s); n != DefaultTargetWords {
			t.Errorf("segment %d has %d words, want %d", i, n, DefaultTargetWords)
		}
	}
}

func TestSegmentChapterBoundaries(t *testing.T) {
	chapters := []string{epubtest.Prose(900), epubtest.Prose(50)}
	got := Segment(chapters, 300)

	perChapter := [][]string{SegmentChapter(chapters[0], 300), SegmentChapter(chapters[1], 300)}
	want := append(append([]string{}, perChapter[0]...), perChapter[1]...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment() is not the concatenation of per-chapter segments")
	}
	if len(perChapter[0]) != 3 || len(perChapter[1]) != 1 {
		t.Fatalf("got %d+%d segments, want 3+1", len(perChapter[0]), len(perChapter[1]))
	}
	if n := CountWords(got[len(got)-1]); n != 50 {
		t.Errorf("last segment has %d words, want 50", n)
	}
}

// randomChapter builds a chapter from sentences of random length so the
// properties below are checked against uneven input.
func randomChapter(rng *rand.Rand, sentences int) string {
	var parts []string
	for i := 0; i < sentences; i++ {
		n := 1 + rng.Intn(60)
		words := make([]string, n)
		for j := range words {
			words[j] = "word"
		}
		words[0] = "Start"
		parts = append(parts, strings.Join(words, " ")+".")
	}
	return strings.Join(parts, " ")
}

func TestSegmentProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		target := 20 + rng.Intn(300)
		chapter := randomChapter(rng, 1+rng.Intn(40))
		segments := SegmentChapter(chapter, target)

		// Reassembling the excerpts reproduces the chapter.
		joined := strings.Join(segments, " ")
		if strings.Join(strings.Fields(joined), " ") != strings.Join(strings.Fields(chapter), " ") {
			t.Fatalf("round %d: segments do not reproduce the chapter", round)
		}

		for i, s := range segments {
			n := CountWords(s)
			if n <= target {
				continue
			}
			if len(SplitSentences(s)) != 1 {
				t.Fatalf("round %d: segment %d has %d words over target %d and more than one sentence", round, i, n, target)
			}
		}

		// A closed segment plus the next sentence must overflow the target.
		for i := 0; i+1 < len(segments); i++ {
			first := SplitSentences(segments[i+1])[0]
			if CountWords(segments[i])+CountWords(first) <= target {
				t.Fatalf("round %d: segment %d closed early", round, i)
			}
		}
	}
}

func TestCountWordsSpaces(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"one two\tthree\nfour", 4},
		{"page\u00a012", 1},
		{"10\u202fkm away", 2},
		{"\u3000lead and trail\u2003", 3},
	}
	for _, tt := range tests {
		if got := CountWords(tt.text); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
