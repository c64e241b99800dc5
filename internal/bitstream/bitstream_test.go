package bitstream

import "testing"

func TestRoundTripManySmallFields(t *testing.T) {
	// Exercise the Flush-on-overflow path in AddBits: many more bits
	// than fit in one register's worth before the writer is Closed.
	widths := make([]uint, 0, 200)
	values := make([]uint32, 0, 200)
	for i := 0; i < 200; i++ {
		n := uint(1 + i%24)
		widths = append(widths, n)
		values = append(values, uint32(i)&(1<<n-1))
	}

	w := NewWriter(nil)
	for i := len(widths) - 1; i >= 0; i-- {
		if err := w.AddBits(values[i], widths[i]); err != nil {
			t.Fatalf("AddBits: %v", err)
		}
	}
	payload := w.Close()

	r, err := NewReader(payload)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	for i := 0; i < len(widths); i++ {
		got, err := r.ReadBits(widths[i])
		if err != nil {
			t.Fatalf("ReadBits at %d: %v", i, err)
		}
		if got != values[i] {
			t.Fatalf("ReadBits at %d = %d, want %d", i, got, values[i])
		}
		if r.Reload() == Overflow && i != len(widths)-1 {
			t.Fatalf("unexpected Overflow at %d", i)
		}
	}
}

func TestPeekAndDrop(t *testing.T) {
	w := NewWriter(nil)
	if err := w.AddBits(0b1011, 4); err != nil {
		t.Fatal(err)
	}
	if err := w.AddBits(0b101, 3); err != nil {
		t.Fatal(err)
	}
	payload := w.Close()

	r, err := NewReader(payload)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	v, err := r.PeekBits(3)
	if err != nil {
		t.Fatalf("PeekBits: %v", err)
	}
	if v != 0b101 {
		t.Fatalf("PeekBits = %b, want %b", v, 0b101)
	}
	r.Drop(3)
	v, err = r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	if v != 0b1011 {
		t.Fatalf("ReadBits = %b, want %b", v, 0b1011)
	}
}

func TestNewReaderRejectsEmpty(t *testing.T) {
	if _, err := NewReader(nil); err == nil {
		t.Fatal("expected error on empty input")
	}
}
