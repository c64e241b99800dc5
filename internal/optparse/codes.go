package optparse

import "math/bits"

// MinMatch is the shortest back-reference the parser or match finder
// will ever propose (spec §3 "matchLength >= 3").
const MinMatch = 3

// highbit32 mirrors ZSTD1_highbit32: the position of the most
// significant set bit (undefined for 0, never called with it here).
func highbit32(v uint32) uint32 {
	return uint32(bits.Len32(v) - 1)
}

// llBits and mlBits give the number of extra bits following each
// literal-length / match-length code (spec §4.8's code tables;
// original_source/zstd_opt.c references these as LL_bits/ML_bits from
// a header this retrieval pack does not carry). baseline[c] is the
// smallest value code c represents; baseline[c+1] == baseline[c] +
// 1<<bits[c], so the two tables derive each other and every value has
// exactly one code — built once in init rather than hand-typed twice
// to avoid the two tables silently drifting apart.
var llBits = [36]uint32{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 6, 7, 8, 9, 10, 11, 12,
	13, 14, 15, 16,
}

var mlBits = [53]uint32{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7,
	8, 8, 9, 9, 16,
}

var llBaseline = cumulativeBaseline(llBits[:])
var mlBaseline = cumulativeBaseline(mlBits[:])

func cumulativeBaseline(bitsTable []uint32) []uint32 {
	base := make([]uint32, len(bitsTable))
	v := uint32(0)
	for i, b := range bitsTable {
		base[i] = v
		v += uint32(1) << b
	}
	return base
}

// codeForValue finds the code whose [baseline, baseline+2^bits) range
// contains value, scanning from the top since most literal/match
// lengths are small and the common codes sit at the low end — but the
// search must start high because later codes have larger baselines.
func codeForValue(baseline []uint32, value uint32) uint32 {
	for c := len(baseline) - 1; c >= 0; c-- {
		if value >= baseline[c] {
			return uint32(c)
		}
	}
	return 0
}

// llCode maps a literal length to its wire code.
func llCode(litLength uint32) uint32 { return codeForValue(llBaseline, litLength) }

// mlCode maps (matchLength - MinMatch) to its wire code.
func mlCode(mlBase uint32) uint32 { return codeForValue(mlBaseline, mlBase) }

// offsetCode returns the FSE symbol for a raw sequence offset value
// (post repcode-translation, i.e. the value actually carried in the
// sequence's extra-bits field): the position of its highest set bit,
// following ZSTD_updateStats' "offCode = highbit32(offsetCode+1)".
func offsetCode(offsetValue uint32) uint32 {
	return highbit32(offsetValue + 1)
}

// extraBits returns the low bits of value beyond its baseline, i.e.
// the literal payload written after a code in the wire format.
func extraBits(baseline []uint32, bitsTable []uint32, code uint32, value uint32) (uint32, uint32) {
	return value - baseline[code], bitsTable[code]
}
