package huff

import (
	"bytes"
	"testing"

	"github.com/jmoiron/zstd1/internal/bitstream"
)

func buildFreq(data []byte) []uint32 {
	freq := make([]uint32, MaxSymbolValue+1)
	for _, b := range data {
		freq[b]++
	}
	return freq
}

func TestRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog repeatedly, over and over")

	ct, err := BuildCTable(buildFreq(data), MaxSymbolValue, MaxTableLog)
	if err != nil {
		t.Fatalf("BuildCTable: %v", err)
	}

	dt, err := BuildDTableFromWeights(ct.Weights(MaxSymbolValue), MaxTableLog)
	if err != nil {
		t.Fatalf("BuildDTableFromWeights: %v", err)
	}
	if dt.MaxBits() != ct.MaxBits() {
		t.Fatalf("DTable tableLog %d != CTable tableLog %d", dt.MaxBits(), ct.MaxBits())
	}

	w := bitstream.NewWriter(nil)
	for i := len(data) - 1; i >= 0; i-- {
		if err := ct.Encode(w, data[i]); err != nil {
			t.Fatalf("Encode at %d: %v", i, err)
		}
	}
	payload := w.Close()

	r, err := bitstream.NewReader(payload)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got := make([]byte, len(data))
	for i := 0; i < len(data); i++ {
		s, err := dt.Decode(r)
		if err != nil {
			t.Fatalf("Decode at %d: %v", i, err)
		}
		got[i] = s
		r.Reload()
	}

	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch:\ngot  %q\nwant %q", got, data)
	}
}

func TestBuildCTableSingleSymbol(t *testing.T) {
	freq := make([]uint32, MaxSymbolValue+1)
	freq['x'] = 10
	ct, err := BuildCTable(freq, MaxSymbolValue, MaxTableLog)
	if err != nil {
		t.Fatalf("BuildCTable: %v", err)
	}
	if ct.MaxBits() != 1 {
		t.Fatalf("single-symbol table log = %d, want 1", ct.MaxBits())
	}
}

func TestBuildCTableNoSymbols(t *testing.T) {
	freq := make([]uint32, MaxSymbolValue+1)
	if _, err := BuildCTable(freq, MaxSymbolValue, MaxTableLog); err == nil {
		t.Fatal("expected error building a table with zero frequencies")
	}
}
