package fse

import "github.com/jmoiron/zstd1/internal/bitstream"

// CState is one of the two interleaved encoder states from spec §4.3.
// Two states advance in lockstep over symbols processed in reverse
// order; callers are responsible for alternating which state serves
// which symbol (even/odd), matching zstd's own calling convention.
type CState struct {
	value uint32
	ct    *CTable
}

// InitCState starts a state at the canonical minimum-cost value for
// this table (tableSize, i.e. state index 0 relative to the table's
// base). Per DESIGN NOTES §9, the "initCState2" trick of biasing the
// initial state toward a hypothetical first emitted symbol is
// intentionally not implemented: it only produces canonical output
// when the caller can prove that symbol is emitted first, which this
// encoder does not track.
func InitCState(ct *CTable) CState {
	return CState{value: uint32(1) << ct.TableLog, ct: ct}
}

// Encode emits symbol's bits to w and advances the state, per spec
// §4.3 encode pseudocode.
func (c *CState) Encode(w *bitstream.Writer, symbol uint8) error {
	tt := c.ct.symbolTT[symbol]
	nbBitsOut := (uint32(c.value) + tt.DeltaNbBits) >> 16
	if err := w.AddBits(c.value, uint(nbBitsOut)); err != nil {
		return err
	}
	idx := int32(c.value>>nbBitsOut) + tt.DeltaFindState
	c.value = uint32(c.ct.stateTable[idx])
	return nil
}

// Flush writes the state's raw value using exactly TableLog bits, as
// required to terminate an FSE stream (spec §4.3 "After the last
// symbol...").
func (c *CState) Flush(w *bitstream.Writer) error {
	return w.AddBits(c.value, uint(c.ct.TableLog))
}

// DState is an FSE decoder state (spec §4.3 "Decode").
type DState struct {
	state uint32
	dt    *DTable
}

// InitDState reads TableLog bits from r to set the initial state.
func InitDState(r *bitstream.Reader, dt *DTable) (DState, error) {
	v, err := r.ReadBits(uint(dt.TableLog))
	if err != nil {
		return DState{}, err
	}
	return DState{state: v, dt: dt}, nil
}

// Decode returns the symbol for the current state and advances it,
// using the safe (always bounds-checked) path.
func (d *DState) Decode(r *bitstream.Reader) (uint8, error) {
	e := d.dt.entries[d.state]
	low, err := r.ReadBits(uint(e.NbBits))
	if err != nil {
		return 0, err
	}
	d.state = uint32(e.NewStateBase) + low
	return e.Symbol, nil
}

// DecodeFast is identical to Decode but intended for use only when
// dt.FastMode is true, matching the FSE1_decodeSymbolFast split in the
// reference implementation. The safe path above is always correct;
// FastMode merely documents that the unsafe optimisation zstd performs
// here (skipping a per-call branch) would have been valid.
func (d *DState) DecodeFast(r *bitstream.Reader) (uint8, error) {
	return d.Decode(r)
}

// AtEnd reports whether decoding can stop here (FSE_endOfDState: the
// state has returned to zero).
func (d *DState) AtEnd() bool { return d.state == 0 }
