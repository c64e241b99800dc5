package matchfinder

import "testing"

func TestInsertAndGetAllMatchesFindsRepeat(t *testing.T) {
	// "abcabc" at position 3 should find a 3-byte match back to position 0.
	win := &Window{Cur: []byte("abcabc")}
	bst := NewBST(win, 0)

	for p := 0; p < 3; p++ {
		bst.InsertAndGetAllMatches(p, minMatch, 128, 8)
	}
	matches := bst.InsertAndGetAllMatches(3, minMatch, 128, 8)
	if len(matches) == 0 {
		t.Fatal("expected at least one match at position 3")
	}
	best := matches[len(matches)-1]
	if best.Length != 3 {
		t.Fatalf("best match length = %d, want 3", best.Length)
	}
	if best.Offset != 3 {
		t.Fatalf("best match offset = %d, want 3", best.Offset)
	}
}

func TestInsertAndGetAllMatchesNoMatchBelowMinMatch(t *testing.T) {
	win := &Window{Cur: []byte("abXYabZZ")}
	bst := NewBST(win, 0)

	bst.InsertAndGetAllMatches(0, minMatch, 128, 8)
	// Position 4 shares only "ab" (2 bytes) with position 0, below minMatch.
	matches := bst.InsertAndGetAllMatches(4, minMatch, 128, 8)
	for _, m := range matches {
		if m.Length < minMatch {
			t.Fatalf("returned a match shorter than minMatch: %+v", m)
		}
	}
}

func TestInsertAndGetAllMatchesRespectsLengthToBeat(t *testing.T) {
	win := &Window{Cur: []byte("abcdabcdXXXXabcd")}
	bst := NewBST(win, 0)

	bst.InsertAndGetAllMatches(0, minMatch, 128, 8)
	bst.InsertAndGetAllMatches(4, minMatch, 128, 8) // "abcd" repeat, len 4

	// Position 12 also repeats "abcd"; raising lengthToBeat above 4 should
	// suppress it as a reported match.
	matches := bst.InsertAndGetAllMatches(12, 5, 128, 8)
	for _, m := range matches {
		if m.Length < 5 {
			t.Fatalf("match %+v should have been below the lengthToBeat floor", m)
		}
	}
}

func TestMatchLengthAtBoundedByWindow(t *testing.T) {
	win := &Window{Cur: []byte("aaaaaa")}
	if got := win.MatchLengthAt(3, 0, 100); got != 3 {
		t.Fatalf("MatchLengthAt = %d, want 3 (capped by window remainder)", got)
	}
	if got := win.MatchLengthAt(3, -1, 100); got != 0 {
		t.Fatalf("MatchLengthAt with negative b = %d, want 0", got)
	}
}
