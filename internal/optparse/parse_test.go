package optparse

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jmoiron/zstd1/internal/matchfinder"
	"github.com/jmoiron/zstd1/internal/sequence"
)

func defaultParams() Params {
	return Params{TargetLength: 64, SearchLog: 6, OptLevel: 2}
}

// reconstruct replays seqs+trailing against rep the way a decoder
// would, verifying Parse's output actually describes src.
func reconstruct(seqs []Sequence, trailing []byte, rep sequence.Repcodes) ([]byte, error) {
	var out []byte
	for _, s := range seqs {
		out = append(out, s.Literals...)
		dist, err := rep.Apply(uint32(len(s.Literals)), s.OffsetCode)
		if err != nil {
			return nil, err
		}
		start := len(out) - int(dist)
		for i := 0; i < int(s.MatchLength); i++ {
			out = append(out, out[start+i])
		}
	}
	out = append(out, trailing...)
	return out, nil
}

func runParse(t *testing.T, src []byte) ([]Sequence, []byte) {
	t.Helper()
	win := &matchfinder.Window{Cur: src}
	bst := matchfinder.NewBST(win, 0)
	rep := sequence.NewRepcodes()
	var state State
	seqs, trailing, _ := Parse(&state, win, bst, src, rep, defaultParams())
	return seqs, trailing
}

func TestParseRoundTripsRepetitiveInput(t *testing.T) {
	src := []byte(strings.Repeat("abcdefgh", 200))
	seqs, trailing := runParse(t, src)

	got, err := reconstruct(seqs, trailing, sequence.NewRepcodes())
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(src))
	}
	if len(seqs) == 0 {
		t.Fatal("expected at least one match sequence for highly repetitive input")
	}
}

func TestParseRoundTripsEnglishText(t *testing.T) {
	src := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 30))
	seqs, trailing := runParse(t, src)

	got, err := reconstruct(seqs, trailing, sequence.NewRepcodes())
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(src))
	}
}

func TestParseNoMatchesIsAllLiterals(t *testing.T) {
	src := []byte("xyz") // shorter than ilimit window, never enters the matching loop
	seqs, trailing := runParse(t, src)
	if len(seqs) != 0 {
		t.Fatalf("expected no sequences for tiny input, got %d", len(seqs))
	}
	if !bytes.Equal(trailing, src) {
		t.Fatalf("trailing = %q, want %q", trailing, src)
	}
}

func TestParseEmptyInput(t *testing.T) {
	seqs, trailing := runParse(t, nil)
	if len(seqs) != 0 || len(trailing) != 0 {
		t.Fatalf("expected no output for empty input, got seqs=%d trailing=%d", len(seqs), len(trailing))
	}
}
