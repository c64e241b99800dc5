package fse

import (
	"bytes"
	"testing"

	"github.com/jmoiron/zstd1/internal/bitstream"
)

func encodeSymbols(t *testing.T, ct *CTable, symbols []uint8) []byte {
	t.Helper()
	w := bitstream.NewWriter(nil)
	st := InitCState(ct)
	for i := len(symbols) - 1; i >= 0; i-- {
		if err := st.Encode(w, symbols[i]); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if err := st.Flush(w); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return w.Close()
}

func decodeSymbols(t *testing.T, dt *DTable, n int, payload []byte) []uint8 {
	t.Helper()
	r, err := bitstream.NewReader(payload)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	st, err := InitDState(r, dt)
	if err != nil {
		t.Fatalf("InitDState: %v", err)
	}
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		s, err := st.Decode(r)
		if err != nil {
			t.Fatalf("Decode at %d: %v", i, err)
		}
		out[i] = s
		r.Reload()
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	cases := [][]uint8{
		bytes.Repeat([]byte{5}, 40),
		{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 0, 0, 1},
		[]byte("the quick brown fox jumps over the lazy dog, twice over"),
	}

	for _, symbols := range cases {
		maxSym := 0
		for _, s := range symbols {
			if int(s) > maxSym {
				maxSym = int(s)
			}
		}
		counts := CountSymbols(symbols, maxSym)
		tableLog := OptimalTableLog(12, len(symbols), maxSym)
		norm, err := NormalizeCount(counts, maxSym, tableLog)
		if err != nil {
			t.Fatalf("NormalizeCount: %v", err)
		}

		ct, err := BuildCTable(norm, maxSym, tableLog)
		if err != nil {
			t.Fatalf("BuildCTable: %v", err)
		}
		dt, err := BuildDTable(norm, maxSym, tableLog)
		if err != nil {
			t.Fatalf("BuildDTable: %v", err)
		}

		payload := encodeSymbols(t, ct, symbols)
		got := decodeSymbols(t, dt, len(symbols), payload)

		if !bytes.Equal(got, symbols) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, symbols)
		}
	}
}

func TestRLERoundTrip(t *testing.T) {
	const sym = uint8(9)
	ct := BuildCTableRLE(sym, 15)
	dt := BuildDTableRLE(sym)

	payload := encodeSymbols(t, ct, []uint8{sym, sym, sym})
	got := decodeSymbols(t, dt, 3, payload)
	for _, g := range got {
		if g != sym {
			t.Fatalf("RLE decode got %d, want %d", g, sym)
		}
	}
}

func TestNCountRoundTrip(t *testing.T) {
	symbols := []byte("mississippi river delta")
	maxSym := 0
	for _, s := range symbols {
		if int(s) > maxSym {
			maxSym = int(s)
		}
	}
	counts := CountSymbols(symbols, maxSym)
	tableLog := OptimalTableLog(9, len(symbols), maxSym)
	norm, err := NormalizeCount(counts, maxSym, tableLog)
	if err != nil {
		t.Fatalf("NormalizeCount: %v", err)
	}

	encoded, err := WriteNCount(norm, maxSym, tableLog)
	if err != nil {
		t.Fatalf("WriteNCount: %v", err)
	}
	if len(encoded) > NCountWriteBound(maxSym, tableLog) {
		t.Fatalf("WriteNCount exceeded its own bound: %d > %d", len(encoded), NCountWriteBound(maxSym, tableLog))
	}

	gotNorm, gotLog, consumed, err := ReadNCount(encoded, maxSym)
	if err != nil {
		t.Fatalf("ReadNCount: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("ReadNCount consumed %d, want %d", consumed, len(encoded))
	}
	if gotLog != tableLog {
		t.Fatalf("ReadNCount tableLog = %d, want %d", gotLog, tableLog)
	}
	for i := range norm {
		if gotNorm[i] != norm[i] {
			t.Fatalf("ReadNCount norm[%d] = %d, want %d", i, gotNorm[i], norm[i])
		}
	}
}
