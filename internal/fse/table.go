// Package fse implements the Finite State Entropy (tANS) coder used by
// zstd for the three sequence streams: literal lengths, match lengths,
// and offset codes.
//
// The table layout and the "spread" step are built the way
// fse_decompress.c builds them (see original_source/fse.h /
// fse_decompress.c for the reference C); the bit-level plumbing is
// grounded on this module's own internal/bitstream package, which
// follows the same forward-writer/reverse-reader split klauspost's
// huff0 decompressor uses in the retrieval pack (see
// other_examples/'s vendored huff0 decompress_generic.go/
// decompress_amd64.go, which read a compressed bitstream back to
// front for the same reason FSE's decoding table does).
package fse

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	// MinTableLog and MaxTableLog bound the FSE table size, per spec §4.2.
	MinTableLog = 5
	MaxTableLog = 15

	// MaxSymbolValue is the largest symbol this byte-oriented codec
	// accepts (a full byte alphabet).
	MaxSymbolValue = 255
)

var (
	ErrTableLogTooLarge       = errors.New("fse: tableLog too large")
	ErrTableLogTooSmall       = errors.New("fse: tableLog too small")
	ErrMaxSymbolValueTooLarge = errors.New("fse: maxSymbolValue too large")
	ErrCorruption             = errors.New("fse: corruption detected")
)

// tableStep is the fixed odd stride used to spread symbols across the
// table; see spec §4.2 step 4. It visits every cell exactly once for
// any valid tableSize because it is coprime with every power of two.
func tableStep(tableSize uint32) uint32 {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// DecodeEntry is one row of the decode table: the symbol this state
// emits, how many bits to read to pick the successor state, and the
// base to add those bits to.
type DecodeEntry struct {
	Symbol       uint8
	NbBits       uint8
	NewStateBase uint16
}

// DTable is a built FSE decode table.
type DTable struct {
	TableLog uint8
	FastMode bool
	entries  []DecodeEntry
}

// TableSize returns 1<<TableLog.
func (dt *DTable) TableSize() int { return 1 << dt.TableLog }

// Entry returns the decode row for state s.
func (dt *DTable) Entry(s uint32) DecodeEntry { return dt.entries[s] }

// BuildDTable builds a decode table from a normalized distribution, per
// spec §4.2 "Decode table build". norm must have length
// maxSymbolValue+1; norm[s] == -1 marks a "less-than-one probability"
// symbol.
func BuildDTable(norm []int16, maxSymbolValue int, tableLog uint) (*DTable, error) {
	if tableLog < MinTableLog {
		return nil, ErrTableLogTooSmall
	}
	if tableLog > MaxTableLog {
		return nil, ErrTableLogTooLarge
	}
	if maxSymbolValue > MaxSymbolValue {
		return nil, ErrMaxSymbolValueTooLarge
	}

	tableSize := uint32(1) << tableLog
	highThreshold := tableSize - 1

	dt := &DTable{TableLog: uint8(tableLog), FastMode: true, entries: make([]DecodeEntry, tableSize)}
	symbolNext := make([]uint16, maxSymbolValue+1)

	largeLimit := int16(1) << (tableLog - 1)
	for s, count := range norm {
		switch {
		case count == -1:
			dt.entries[highThreshold].Symbol = uint8(s)
			highThreshold--
			symbolNext[s] = 1
		default:
			if count >= largeLimit {
				dt.FastMode = false
			}
			symbolNext[s] = uint16(count)
		}
	}

	// Spread symbols through the table (step 4).
	step := tableStep(tableSize)
	mask := tableSize - 1
	pos := uint32(0)
	for s, count := range norm {
		for i := int16(0); i < count; i++ {
			dt.entries[pos].Symbol = uint8(s)
			pos = (pos + step) & mask
			for pos > highThreshold {
				pos = (pos + step) & mask
			}
		}
	}
	if pos != 0 {
		return nil, fmt.Errorf("fse: spread did not close (pos=%d): %w", pos, ErrCorruption)
	}

	// Build the decode table (step 5).
	for u := range dt.entries {
		sym := dt.entries[u].Symbol
		nextState := symbolNext[sym]
		symbolNext[sym]++
		nbBits := uint8(tableLog) - uint8(bits.Len16(nextState)-1)
		dt.entries[u].NbBits = nbBits
		dt.entries[u].NewStateBase = (nextState << nbBits) - uint16(tableSize)
	}

	return dt, nil
}

// BuildDTableRLE builds a degenerate one-state table that always
// decodes to symbolValue, used for the RLE literal-length/match-length
// block mode.
func BuildDTableRLE(symbolValue uint8) *DTable {
	return &DTable{
		TableLog: 0,
		FastMode: false,
		entries:  []DecodeEntry{{Symbol: symbolValue, NbBits: 0, NewStateBase: 0}},
	}
}

// SymbolTransform holds the per-symbol constants the encoder's
// constant-time state transition needs (spec §4.2 "Encode table
// build").
type SymbolTransform struct {
	DeltaFindState int32
	DeltaNbBits    uint32
}

// CTable is a built FSE encode table.
type CTable struct {
	TableLog   uint8
	stateTable []uint16
	symbolTT   []SymbolTransform
}

// Symbol returns the transform for a given symbol.
func (ct *CTable) Symbol(s uint8) SymbolTransform { return ct.symbolTT[s] }

// BuildCTable builds an encode table from the same normalized
// distribution used for BuildDTable, following spec §4.2's "Encode
// table build" paragraph: same spread, but producing per-symbol
// deltaFindState/deltaNbBits instead of per-state rows.
func BuildCTable(norm []int16, maxSymbolValue int, tableLog uint) (*CTable, error) {
	if tableLog < MinTableLog || tableLog > MaxTableLog {
		return nil, ErrTableLogTooLarge
	}
	if maxSymbolValue > MaxSymbolValue {
		return nil, ErrMaxSymbolValueTooLarge
	}

	tableSize := uint32(1) << tableLog
	tableMask := tableSize - 1
	step := tableStep(tableSize)

	// Symbol start positions within the (symbol-sorted) state table,
	// tracked by cumulative occurrence count; low-prob symbols are
	// pinned to the top of the raw spread table first.
	cumul := make([]int32, maxSymbolValue+2)
	tableSymbol := make([]uint8, tableSize)
	highThreshold := tableSize - 1
	for s := 0; s <= maxSymbolValue; s++ {
		if norm[s] == -1 {
			cumul[s+1] = cumul[s] + 1
			tableSymbol[highThreshold] = uint8(s)
			highThreshold--
		} else {
			cumul[s+1] = cumul[s] + int32(norm[s])
		}
	}
	cumul[maxSymbolValue+1] = int32(tableSize) + 1

	// Spread symbols (same rule as the decode table build, §4.2 step 4).
	pos := uint32(0)
	for s, count := range norm {
		for i := int16(0); i < count; i++ {
			tableSymbol[pos] = uint8(s)
			pos = (pos + step) & tableMask
			for pos > highThreshold {
				pos = (pos + step) & tableMask
			}
		}
	}
	if pos != 0 {
		return nil, fmt.Errorf("fse: spread did not close (pos=%d): %w", pos, ErrCorruption)
	}

	ct := &CTable{
		TableLog:   uint8(tableLog),
		stateTable: make([]uint16, tableSize),
		symbolTT:   make([]SymbolTransform, maxSymbolValue+1),
	}

	// tableU16 sorted by symbol order gives, for each occurrence of a
	// symbol (in table-position order), the state it should resolve to.
	next := make([]int32, len(cumul))
	copy(next, cumul)
	for u := uint32(0); u < tableSize; u++ {
		s := tableSymbol[u]
		ct.stateTable[next[s]] = uint16(tableSize + u)
		next[s]++
	}

	total := int32(0)
	for s, count := range norm {
		switch count {
		case 0:
			continue
		case -1, 1:
			ct.symbolTT[s] = SymbolTransform{
				DeltaNbBits:    uint32(tableLog)<<16 - (1 << tableLog),
				DeltaFindState: total - 1,
			}
			total++
		default:
			maxBitsOut := uint32(tableLog) - uint32(bits.Len32(uint32(count)-1)-1)
			minStatePlus := uint32(count) << maxBitsOut
			ct.symbolTT[s] = SymbolTransform{
				DeltaNbBits:    (maxBitsOut << 16) - minStatePlus,
				DeltaFindState: total - int32(count),
			}
			total += int32(count)
		}
	}

	return ct, nil
}
