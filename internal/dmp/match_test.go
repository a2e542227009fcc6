package dmp

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := levenshtein([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	if s := similarity([]rune("hello"), []rune("hello")); s != 1 {
		t.Fatalf("expected 1, got %f", s)
	}
}

func TestFindMatchExactAtExpected(t *testing.T) {
	text := []rune("the quick brown fox jumps")
	pattern := []rune("brown")
	offset, score, ok := findMatch(text, pattern, 10, DefaultMatchDistance, DefaultMatchThreshold)
	if !ok {
		t.Fatal("expected a match")
	}
	if offset != 10 {
		t.Fatalf("expected offset 10, got %d", offset)
	}
	if score != 1 {
		t.Fatalf("expected exact score 1, got %f", score)
	}
}

func TestFindMatchDriftedLocation(t *testing.T) {
	text := []rune("XXXXXthe quick brown fox jumps")
	pattern := []rune("brown")
	// expected offset is stale (pre-prefix-insert); real location is 5 runes later.
	offset, _, ok := findMatch(text, pattern, 10, DefaultMatchDistance, DefaultMatchThreshold)
	if !ok {
		t.Fatal("expected fuzzy match to find drifted location")
	}
	if offset != 15 {
		t.Fatalf("expected drifted offset 15, got %d", offset)
	}
}

func TestFindMatchBelowThresholdFails(t *testing.T) {
	text := []rune("completely unrelated content here")
	pattern := []rune("zzzzzzzzzz")
	_, _, ok := findMatch(text, pattern, 0, DefaultMatchDistance, DefaultMatchThreshold)
	if ok {
		t.Fatal("expected no match above threshold")
	}
}
