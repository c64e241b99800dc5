package zstd1

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"a",
		strings.Repeat("ab", 3000),
		"The quick brown fox jumps over the lazy dog. " +
			"The quick brown fox jumps over the lazy dog again.",
		strings.Repeat("mississippi river delta sediment deposits slowly", 50),
	}

	for _, level := range []int{1, 6, 19} {
		for _, in := range inputs {
			compressed, err := Compress(nil, []byte(in), level)
			if err != nil {
				t.Fatalf("level %d, Compress(%q): %v", level, in[:min(len(in), 20)], err)
			}
			got, err := Decompress(nil, compressed)
			if err != nil {
				t.Fatalf("level %d, Decompress: %v", level, err)
			}
			if !bytes.Equal(got, []byte(in)) {
				t.Fatalf("level %d round trip mismatch: got %d bytes, want %d bytes", level, len(got), len(in))
			}
		}
	}
}

func TestCompressWithChecksum(t *testing.T) {
	c := NewCompressor(3).WithChecksum(true)
	in := []byte(strings.Repeat("checksum me please", 100))
	out, err := c.Compress(nil, in)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := NewDecompressor().Decompress(nil, out)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatal("round trip mismatch with checksum enabled")
	}

	out[len(out)-1] ^= 0xFF
	if _, err := NewDecompressor().Decompress(nil, out); !IsError(err) {
		t.Fatal("expected a corrupted checksum to be reported as an error")
	}
}

func TestStreamingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 3)
	in := []byte(strings.Repeat("streaming round trip test data ", 200))
	if _, err := w.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(&buf)
	got := make([]byte, len(in))
	n := 0
	for n < len(got) {
		m, err := r.Read(got[n:])
		n += m
		if err != nil {
			break
		}
	}
	if !bytes.Equal(got[:n], in) {
		t.Fatalf("streaming round trip mismatch: got %d bytes, want %d", n, len(in))
	}
}
