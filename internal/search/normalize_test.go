package search

import "testing"

func TestConservativeCleanStripsBracketedYears(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Inception (2010)", "Inception"},
		{"Dune [2021] Extended", "Dune Extended"},
		{"Blade Runner 2049", "Blade Runner 2049"},
		{"(1999) The Matrix (1999)", "The Matrix"},
		{"  spaced   out  ", "spaced out"},
		{"(2010)", ""},
	}
	for _, tc := range cases {
		if got := ConservativeClean(tc.in); got != tc.want {
			t.Fatalf("ConservativeClean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConservativeCleanPreservesPunctuation(t *testing.T) {
	in := "B-Movie: Lust & Sound in West-Berlin"
	if got := ConservativeClean(in); got != in {
		t.Fatalf("ConservativeClean(%q) = %q, want unchanged", in, got)
	}
}

func TestAggressiveCleanBlanksPunctuation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"B-Movie: Lust & Sound", "B Movie Lust Sound"},
		{"WALL·E", "WALL E"},
		{"Amélie", "Am lie"},
		{"plain words", "plain words"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := AggressiveClean(tc.in); got != tc.want {
			t.Fatalf("AggressiveClean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleaningIsIdempotent(t *testing.T) {
	inputs := []string{
		"Breaking Bad (2008) S02E07",
		"B-Movie: Lust & Sound",
		"Dune [2021]",
	}
	for _, in := range inputs {
		once := ConservativeClean(in)
		if twice := ConservativeClean(once); twice != once {
			t.Fatalf("ConservativeClean not idempotent on %q: %q then %q", in, once, twice)
		}
		once = AggressiveClean(in)
		if twice := AggressiveClean(once); twice != once {
			t.Fatalf("AggressiveClean not idempotent on %q: %q then %q", in, once, twice)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The.Matrix-1999 the MATRIX")
	want := KeywordSet{"the": 2, "matrix": 2, "1999": 1}
	if len(got) != len(want) {
		t.Fatalf("ExtractKeywords returned %v, want %v", got, want)
	}
	for word, count := range want {
		if got[word] != count {
			t.Fatalf("keyword %q count = %d, want %d (full set %v)", word, got[word], count, got)
		}
	}
}

func TestExtractKeywordsDropsSingleCharTokens(t *testing.T) {
	got := ExtractKeywords("a B 7 cat")
	if len(got) != 1 || got["cat"] != 1 {
		t.Fatalf("ExtractKeywords(\"a B 7 cat\") = %v, want {cat:1}", got)
	}
}

func TestExtractKeywordsEmpty(t *testing.T) {
	if got := ExtractKeywords("!?&"); len(got) != 0 {
		t.Fatalf("ExtractKeywords on pure punctuation = %v, want empty", got)
	}
}
