// Package huff implements the canonical Huffman coder zstd uses for the
// literals section (spec §4.8 step 5: "raw / rle / Huffman-compressed,
// whichever is smallest"). Codes are described by a per-symbol bit
// weight (not explicit lengths), the same compact header shape FSE's
// NCount uses for frequencies, and assigned canonically the way a
// sorted-by-code-length symbol table assigns codes elsewhere in the
// pack (other_examples/ carries a standalone canonical-Huffman decoder
// that builds its lookup the same way: sort symbols by code length,
// then walk the sorted list assigning successive bit patterns), driven
// here by a weight-sorted symbol list rather than an explicit-length
// list, since zstd ships the weights directly instead of the lengths.
package huff

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/zstd1/internal/bitstream"
)

// MaxTableLog is the largest Huffman table depth zstd allows for
// literals (spec glossary; matches HUF_TABLELOG_MAX).
const MaxTableLog = 11

// MaxSymbolValue is the alphabet size (one literal byte).
const MaxSymbolValue = 255

var (
	ErrTooManySymbols = errors.New("huff: too many symbols for table log")
	ErrCorruption     = errors.New("huff: corruption detected")
)

// CTable is a built Huffman encode table: for each symbol, the code
// value (right-justified) and its bit length.
type CTable struct {
	tableLog uint
	nbBits   [MaxSymbolValue + 1]uint8
	val      [MaxSymbolValue + 1]uint16
}

// weightOf returns the Huffman weight for a bit length, per zstd's
// convention: weight = tableLog + 1 - nbBits, and nbBits == 0 implies
// weight 0 (symbol unused).
func weightOf(nbBits uint8, tableLog uint) uint8 {
	if nbBits == 0 {
		return 0
	}
	return uint8(tableLog) + 1 - nbBits
}

// BuildCTable constructs canonical Huffman codes for the given symbol
// frequencies, following the package-merge-free greedy construction
// spec §4.8 expects for literals: build an optimal-length code (here,
// via a simple binary-heap Huffman tree) then canonicalize it so codes
// of equal length compare in increasing symbol order, which is what
// lets the decode table be built from bit-lengths alone.
func BuildCTable(freq []uint32, maxSymbolValue int, tableLogMax uint) (*CTable, error) {
	type node struct {
		weight     uint64
		symbol     int // -1 for internal nodes
		left, right int
	}

	var nodes []node
	active := []int{}
	for s := 0; s <= maxSymbolValue; s++ {
		if freq[s] == 0 {
			continue
		}
		nodes = append(nodes, node{weight: uint64(freq[s]), symbol: s, left: -1, right: -1})
		active = append(active, len(nodes)-1)
	}

	if len(active) == 0 {
		return nil, errors.New("huff: no symbols with nonzero frequency")
	}
	if len(active) == 1 {
		// Degenerate single-symbol alphabet: assign a 1-bit code so the
		// framing still has something to write; callers normally steer
		// this case to RLE literals instead.
		ct := &CTable{tableLog: 1}
		ct.nbBits[nodes[active[0]].symbol] = 1
		return ct, nil
	}

	depth := make(map[int]uint8)
	for len(active) > 1 {
		sort.Slice(active, func(i, j int) bool { return nodes[active[i]].weight < nodes[active[j]].weight })
		a, b := active[0], active[1]
		merged := node{weight: nodes[a].weight + nodes[b].weight, symbol: -1, left: a, right: b}
		nodes = append(nodes, merged)
		active = append(active[2:], len(nodes)-1)
	}

	root := active[0]
	var walk func(idx int, d uint8)
	walk = func(idx int, d uint8) {
		n := nodes[idx]
		if n.symbol >= 0 {
			if d == 0 {
				d = 1 // single-node subtree still needs 1 bit
			}
			depth[n.symbol] = d
			return
		}
		walk(n.left, d+1)
		walk(n.right, d+1)
	}
	walk(root, 0)

	maxDepth := uint8(0)
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	tableLog := uint(maxDepth)
	if tableLog > tableLogMax {
		tableLog = tableLogMax
	}
	if tableLog > MaxTableLog {
		tableLog = MaxTableLog
	}

	// Rescale depths to fit tableLog using the same "longest codes pay
	// first" capping strategy HUF_setMaxHeight uses: clamp every depth
	// greater than tableLog down to tableLog, then greedily restore
	// kraft-inequality balance by lengthening the cheapest symbols.
	nbBits := make([]uint8, maxSymbolValue+1)
	for s, d := range depth {
		if uint(d) > tableLog {
			d = uint8(tableLog)
		}
		nbBits[s] = d
	}
	if err := rebalanceKraft(nbBits, tableLog); err != nil {
		return nil, err
	}

	ct := &CTable{tableLog: tableLog}
	assignCanonicalCodes(ct, nbBits, tableLog)
	return ct, nil
}

// rebalanceKraft adjusts nbBits in place so that sum(2^(tableLog-n))
// over active symbols equals 2^tableLog exactly, the Kraft equality a
// valid canonical code must satisfy. Clamping long codes down to
// tableLog can leave the sum over budget; this trims it back by
// lengthening, one bit at a time and highest index first, the symbols
// whose codes are still shorter than tableLog.
func rebalanceKraft(nbBits []uint8, tableLog uint) error {
	total := uint32(0)
	for _, n := range nbBits {
		if n > 0 {
			total += uint32(1) << (tableLog - uint(n))
		}
	}
	budget := uint32(1) << tableLog
	for total > budget {
		for s := len(nbBits) - 1; s >= 0 && total > budget; s-- {
			if nbBits[s] == 0 || uint(nbBits[s]) >= tableLog {
				continue
			}
			total -= uint32(1) << (tableLog - uint(nbBits[s]))
			nbBits[s]++
			total += uint32(1) << (tableLog - uint(nbBits[s]))
		}
	}
	for total < budget {
		done := false
		for s := range nbBits {
			if nbBits[s] > 1 && uint32(1)<<(tableLog-uint(nbBits[s])) <= budget-total {
				total -= uint32(1) << (tableLog - uint(nbBits[s]))
				nbBits[s]--
				total += uint32(1) << (tableLog - uint(nbBits[s]))
				done = true
				break
			}
		}
		if !done {
			return fmt.Errorf("huff: could not balance Kraft sum: %w", ErrCorruption)
		}
	}
	return nil
}

// assignCanonicalCodes fills in ct.val from ct.nbBits using the
// standard canonical-code rule: symbols are visited in
// (bitLength, symbolValue) order, and each code is the previous code
// plus one, shifted when bit length increases.
func assignCanonicalCodes(ct *CTable, nbBits []uint8, tableLog uint) {
	copy(ct.nbBits[:], nbBits)

	var counts [MaxTableLog + 2]int
	for _, n := range nbBits {
		counts[n]++
	}
	counts[0] = 0

	var firstCode [MaxTableLog + 2]uint16
	code := uint16(0)
	for bitLen := 1; bitLen <= int(tableLog); bitLen++ {
		firstCode[bitLen] = code
		code = (code + uint16(counts[bitLen])) << 1
	}

	next := firstCode
	for s, n := range nbBits {
		if n == 0 {
			continue
		}
		ct.val[s] = next[n]
		next[n]++
	}
}

// MaxBits reports the table's depth.
func (ct *CTable) MaxBits() uint { return ct.tableLog }

// Weights returns the per-symbol weight sequence used for the header
// (spec §4.8; grounded on HUF_writeCTable's weight serialization,
// itself an FSE-coded or direct nibble stream of these same values).
func (ct *CTable) Weights(maxSymbolValue int) []uint8 {
	w := make([]uint8, maxSymbolValue+1)
	for s := 0; s <= maxSymbolValue; s++ {
		w[s] = weightOf(ct.nbBits[s], ct.tableLog)
	}
	return w
}

// Encode writes symbol's code to w. Huffman, like FSE, is consumed
// through a reverse bitstream.Writer/Reader pair so literals interleave
// cheaply with the sequence streams that follow them in a block.
func (ct *CTable) Encode(w *bitstream.Writer, symbol uint8) error {
	n := ct.nbBits[symbol]
	if n == 0 {
		return fmt.Errorf("huff: symbol %d has no code: %w", symbol, ErrCorruption)
	}
	return w.AddBits(uint32(ct.val[symbol]), uint(n))
}

// DTable is a built Huffman decode table: a flat array indexed by the
// next tableLog bits of the stream.
type DTable struct {
	tableLog uint
	entries  []dtableEntry
}

type dtableEntry struct {
	symbol uint8
	nbBits uint8
}

// MaxBits reports the table's depth.
func (dt *DTable) MaxBits() uint { return dt.tableLog }

// BuildDTableFromWeights reconstructs a decode table from the weight
// sequence a CTable.Weights call (or the wire header) produced.
func BuildDTableFromWeights(weights []uint8, tableLogMax uint) (*DTable, error) {
	maxSymbolValue := len(weights) - 1
	var maxWeight uint8
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight == 0 {
		return nil, errors.New("huff: all weights zero")
	}

	// Every symbol's weight is carried (none is left implicit), so the
	// weights of a valid table sum to exactly 1<<tableLog.
	total := uint32(0)
	for _, w := range weights {
		if w > 0 {
			total += uint32(1) << (w - 1)
		}
	}
	tableLog := uint(bitLen32(total - 1))
	if tableLog == 0 {
		tableLog = 1
	}
	if tableLog > tableLogMax || tableLog > MaxTableLog {
		return nil, ErrTooManySymbols
	}

	nbBits := make([]uint8, maxSymbolValue+1)
	for s, w := range weights {
		if w == 0 {
			continue
		}
		nbBits[s] = uint8(tableLog) + 1 - w
	}

	dt := &DTable{tableLog: tableLog, entries: make([]dtableEntry, 1<<tableLog)}
	ct := &CTable{tableLog: tableLog}
	assignCanonicalCodes(ct, nbBits, tableLog)

	for s, n := range nbBits {
		if n == 0 {
			continue
		}
		code := ct.val[s]
		base := uint32(code) << (tableLog - uint(n))
		span := uint32(1) << (tableLog - uint(n))
		for i := uint32(0); i < span; i++ {
			dt.entries[base+i] = dtableEntry{symbol: uint8(s), nbBits: n}
		}
	}
	return dt, nil
}

func bitLen32(v uint32) uint {
	n := uint(0)
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

// Decode reads one symbol from r using the high tableLog bits of the
// stream.
func (dt *DTable) Decode(r *bitstream.Reader) (uint8, error) {
	peeked, err := r.PeekBits(dt.tableLog)
	if err != nil {
		return 0, err
	}
	e := dt.entries[peeked]
	if e.nbBits == 0 {
		return 0, fmt.Errorf("huff: invalid code: %w", ErrCorruption)
	}
	r.Drop(uint(e.nbBits))
	return e.symbol, nil
}
