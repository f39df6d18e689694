package fuzzy_test

import (
	"math"
	"testing"

	"github.com/MrWong99/lyricsync/internal/transcript/fuzzy"
)

const chunk = "Hello darkness my old friend I've come to talk with you again"

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 100},
		{"", "abc", 0},
		{"abc", "", 0},
		{"abc", "abc", 100},
		{"abcd", "abcdef", 80},
		{"abc", "xyz", 0},
		{"Schüßler", "Schüßler", 100},
		{"ab", "ba", 50},
	}
	for _, tt := range tests {
		if got := fuzzy.Ratio(tt.a, tt.b); !approx(got, tt.want) {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortTokens(t *testing.T) {
	t.Parallel()

	got := fuzzy.SortTokens("  my old\tfriend  Hello ")
	if want := "Hello friend my old"; got != want {
		t.Errorf("SortTokens() = %q, want %q", got, want)
	}
}

func TestTokenSort_OrderInsensitive(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewTokenSort()
	if got := s.Score("my old friend", "friend   old my"); got != 100 {
		t.Errorf("Score() = %v, want 100", got)
	}
}

func TestTokenSort_CaseSensitiveByDefault(t *testing.T) {
	t.Parallel()

	if got := fuzzy.NewTokenSort().Score("Hello", "hello"); !approx(got, 80) {
		t.Errorf("Score() = %v, want 80", got)
	}
	if got := fuzzy.NewTokenSort(fuzzy.WithFold()).Score("Hello", "hELLO"); got != 100 {
		t.Errorf("folded Score() = %v, want 100", got)
	}
}

func TestScorers_ComposeUnicode(t *testing.T) {
	t.Parallel()

	composed, decomposed := "caf\u00e9 society", "cafe\u0301 society"
	for _, sc := range []fuzzy.Scorer{fuzzy.NewTokenSort(), fuzzy.NewJaroWinkler(), fuzzy.NewPhonetic()} {
		if got := sc.Score(composed, decomposed); got != 100 {
			t.Errorf("%s Score() = %v, want 100", sc.Name(), got)
		}
	}
}

func TestTokenSort_LyricExamples(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewTokenSort()

	// One dropped letter in a segment as long as the chunk.
	near := s.Score("Hello darkness my old frend I've come to talk with you again", chunk)
	if want := 12000.0 / 121.0; !approx(near, want) {
		t.Errorf("near-identical score = %v, want %v", near, want)
	}

	// A short misspelled fragment is diluted by the long chunk.
	short := s.Score("helo darknes my old frend", chunk)
	if short >= 80 {
		t.Errorf("short fragment score = %v, want below 80", short)
	}
}

func TestTokenSort_Symmetric(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewTokenSort()
	pairs := [][2]string{
		{"helo darknes", chunk},
		{"the sound of silence", "silence of the sound"},
		{"", "x"},
	}
	for _, p := range pairs {
		if a, b := s.Score(p[0], p[1]), s.Score(p[1], p[0]); a != b {
			t.Errorf("Score(%q,%q)=%v but reversed=%v", p[0], p[1], a, b)
		}
	}
}

func TestJaroWinkler(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewJaroWinkler()
	if got := s.Score("old my friend", "friend my old"); !approx(got, 100) {
		t.Errorf("identical tokens: Score() = %v, want 100", got)
	}
	if got := s.Score("", ""); got != 100 {
		t.Errorf("both empty: %v, want 100", got)
	}
	if got := s.Score("", "abc"); got != 0 {
		t.Errorf("one empty: %v, want 0", got)
	}
	near := s.Score("hello darknes", "hello darkness")
	far := s.Score("hello darknes", "quiet morning")
	if near <= far || near > 100 || far < 0 {
		t.Errorf("near=%v far=%v, want 0 <= far < near <= 100", near, far)
	}
}

func TestPhonetic_Homophones(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewPhonetic()
	if got := s.Score("my old frend", "My Old Friend"); got != 100 {
		t.Errorf("Score() = %v, want 100", got)
	}
	if got := s.Score("darkness", "sunshine"); got >= 100 {
		t.Errorf("unrelated words scored %v", got)
	}
	// Tokens without a phonetic code still count.
	if got := s.Score("42", "42"); got != 100 {
		t.Errorf("digits Score() = %v, want 100", got)
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{
		"":                    fuzzy.NameTokenSort,
		fuzzy.NameTokenSort:   fuzzy.NameTokenSort,
		fuzzy.NameJaroWinkler: fuzzy.NameJaroWinkler,
		fuzzy.NamePhonetic:    fuzzy.NamePhonetic,
	} {
		s, err := fuzzy.ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if s.Name() != want {
			t.Errorf("ByName(%q).Name() = %q, want %q", name, s.Name(), want)
		}
	}
	if _, err := fuzzy.ByName("levenshtein"); err == nil {
		t.Error("expected error for unknown scorer")
	}
}

func TestScorers_Concurrent(t *testing.T) {
	t.Parallel()

	s := fuzzy.NewTokenSort(fuzzy.WithFold())
	done := make(chan float64)
	for range 16 {
		go func() { done <- s.Score("HELLO darkness", "hello Darkness") }()
	}
	for range 16 {
		if got := <-done; got != 100 {
			t.Errorf("concurrent Score() = %v, want 100", got)
		}
	}
}
