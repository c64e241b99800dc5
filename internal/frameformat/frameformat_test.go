package frameformat

import (
	"bytes"
	"testing"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	cases := []FrameHeader{
		{SingleSegment: true, HasContentSize: true, ContentSize: 0},
		{SingleSegment: true, HasContentSize: true, ContentSize: 42},
		{SingleSegment: true, HasContentSize: true, ContentSize: 42, ContentChecksum: true},
		{HasContentSize: true, ContentSize: 1 << 20, WindowSize: 1 << 20},
		{HasContentSize: true, ContentSize: 1 << 33, WindowSize: 1 << 27},
	}

	for _, h := range cases {
		dst := WriteFrameHeader(nil, h)
		got, n, err := ReadFrameHeader(dst)
		if err != nil {
			t.Fatalf("ReadFrameHeader(%+v): %v", h, err)
		}
		if n != len(dst) {
			t.Fatalf("ReadFrameHeader consumed %d, want %d", n, len(dst))
		}
		if got.SingleSegment != h.SingleSegment || got.ContentChecksum != h.ContentChecksum {
			t.Fatalf("flags mismatch: got %+v, want %+v", got, h)
		}
		if h.HasContentSize && got.ContentSize != h.ContentSize {
			t.Fatalf("ContentSize mismatch: got %d, want %d", got.ContentSize, h.ContentSize)
		}
	}
}

func TestReadFrameHeaderBadMagic(t *testing.T) {
	if _, _, err := ReadFrameHeader([]byte{0, 1, 2, 3, 4}); err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		last bool
		typ  BlockType
		size int
	}{
		{false, BlockRaw, 0},
		{true, BlockRLE, 1},
		{false, BlockCompressed, 12345},
		{true, BlockCompressed, MaxBlockSize},
	} {
		dst := WriteBlockHeader(nil, tc.last, tc.typ, tc.size)
		last, typ, size, err := ReadBlockHeader(dst)
		if err != nil {
			t.Fatalf("ReadBlockHeader: %v", err)
		}
		if last != tc.last || typ != tc.typ || size != tc.size {
			t.Fatalf("got (%v,%v,%v), want (%v,%v,%v)", last, typ, size, tc.last, tc.typ, tc.size)
		}
	}
}

func TestLiteralsSectionRawRoundTrip(t *testing.T) {
	literals := []byte("abababababab")
	var freq [256]uint32
	for _, b := range literals {
		freq[b]++
	}
	dst := WriteLiteralsSection(nil, literals, freq[:])
	got, n, err := ReadLiteralsSection(dst)
	if err != nil {
		t.Fatalf("ReadLiteralsSection: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}
	if !bytes.Equal(got, literals) {
		t.Fatalf("got %q, want %q", got, literals)
	}
}

func TestLiteralsSectionRLERoundTrip(t *testing.T) {
	literals := bytes.Repeat([]byte{'z'}, 200)
	var freq [256]uint32
	freq['z'] = uint32(len(literals))
	dst := WriteLiteralsSection(nil, literals, freq[:])
	got, _, err := ReadLiteralsSection(dst)
	if err != nil {
		t.Fatalf("ReadLiteralsSection: %v", err)
	}
	if !bytes.Equal(got, literals) {
		t.Fatalf("got %d bytes, want %d", len(got), len(literals))
	}
}

func TestLiteralsSectionHuffmanRoundTrip(t *testing.T) {
	literals := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 4)
	var freq [256]uint32
	for _, b := range literals {
		freq[b]++
	}
	dst := WriteLiteralsSection(nil, literals, freq[:])
	got, _, err := ReadLiteralsSection(dst)
	if err != nil {
		t.Fatalf("ReadLiteralsSection: %v", err)
	}
	if !bytes.Equal(got, literals) {
		t.Fatalf("round trip mismatch (len got=%d want=%d)", len(got), len(literals))
	}
}

func TestSequencesSectionRoundTrip(t *testing.T) {
	seqs := []Seq{
		{LitLength: 3, MatchLength: 4, OffsetValue: 5},
		{LitLength: 0, MatchLength: 8, OffsetValue: 1},
		{LitLength: 10, MatchLength: 3, OffsetValue: 200},
		{LitLength: 1, MatchLength: 50, OffsetValue: 70000},
	}
	dst, err := WriteSequencesSection(nil, seqs)
	if err != nil {
		t.Fatalf("WriteSequencesSection: %v", err)
	}
	got, n, err := ReadSequencesSection(dst)
	if err != nil {
		t.Fatalf("ReadSequencesSection: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}
	if len(got) != len(seqs) {
		t.Fatalf("got %d sequences, want %d", len(got), len(seqs))
	}
	for i := range seqs {
		if got[i] != seqs[i] {
			t.Fatalf("sequence %d: got %+v, want %+v", i, got[i], seqs[i])
		}
	}
}

func TestSequencesSectionEmpty(t *testing.T) {
	dst, err := WriteSequencesSection(nil, nil)
	if err != nil {
		t.Fatalf("WriteSequencesSection: %v", err)
	}
	got, _, err := ReadSequencesSection(dst)
	if err != nil {
		t.Fatalf("ReadSequencesSection: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d sequences, want 0", len(got))
	}
}
