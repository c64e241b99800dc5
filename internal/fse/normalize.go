package fse

import (
	"errors"
	"math/bits"
)

// OptimalTableLog picks a tableLog no larger than maxTableLog and no
// smaller than MinTableLog, scaled down for small inputs so a table
// never costs more header bytes than the data it describes, following
// the spirit of FSE_optimalTableLog (the exact byte-for-byte formula
// lives in fse_compress.c, not present in this pack's original_source/
// — approximated here, see DESIGN.md).
func OptimalTableLog(maxTableLog uint, srcSize int, maxSymbolValue int) uint {
	if srcSize <= 1 {
		return MinTableLog
	}
	minBitsSrc := uint(bits.Len(uint(srcSize-1))) + 2
	minBitsSym := uint(bits.Len(uint(maxSymbolValue))) + 2
	tableLog := maxTableLog
	if minBitsSrc < tableLog {
		tableLog = minBitsSrc
	}
	if minBitsSym > tableLog {
		// never go below what's needed to give every symbol a slot
		tableLog = minBitsSym
		if tableLog > maxTableLog {
			tableLog = maxTableLog
		}
	}
	if tableLog < MinTableLog {
		tableLog = MinTableLog
	}
	if tableLog > MaxTableLog {
		tableLog = MaxTableLog
	}
	return tableLog
}

// NormalizeCount rescales raw symbol counts to a normalized
// distribution summing to exactly 1<<tableLog, per spec §4.2/§4.8: any
// symbol with a nonzero count gets at least one table cell (counts at
// or below total>>tableLog are flagged -1, "less-than-one
// probability"), and the largest symbol absorbs whatever rounding
// remainder is left over. This is a simplified single-symbol-remainder
// variant of FSE_normalizeCount, which in the reference spreads the
// remainder across several symbols by largest fractional part; ours
// trades a little compression ratio for a much simpler, still-valid
// (Kraft-exact) distribution — see DESIGN.md.
func NormalizeCount(count []uint32, maxSymbolValue int, tableLog uint) ([]int16, error) {
	if maxSymbolValue+1 > len(count) {
		return nil, ErrMaxSymbolValueTooLarge
	}
	var total uint64
	for _, c := range count[:maxSymbolValue+1] {
		total += uint64(c)
	}
	if total == 0 {
		return nil, errors.New("fse: normalize: all counts zero")
	}

	tableSize := uint64(1) << tableLog
	lowThreshold := total / tableSize

	norm := make([]int16, maxSymbolValue+1)
	var distributed uint64
	largestIdx := -1
	var largestP uint64

	for s, c := range count[:maxSymbolValue+1] {
		if c == 0 {
			continue
		}
		if uint64(c) <= lowThreshold {
			norm[s] = -1
			distributed++
			continue
		}
		p := uint64(c) * tableSize / total
		if p < 1 {
			p = 1
		}
		norm[s] = int16(p)
		distributed += p
		if p > largestP {
			largestP = p
			largestIdx = s
		}
	}

	remaining := int64(tableSize) - int64(distributed)
	if remaining != 0 {
		if largestIdx < 0 {
			return nil, errors.New("fse: normalize: no symbol to absorb remainder")
		}
		norm[largestIdx] += int16(remaining)
		if norm[largestIdx] <= 0 {
			return nil, errors.New("fse: normalize: remainder underflowed largest symbol")
		}
	}

	return norm, nil
}

// CountSymbols tallies a byte/code slice into count, the raw input
// NormalizeCount expects.
func CountSymbols(values []uint8, maxSymbolValue int) []uint32 {
	count := make([]uint32, maxSymbolValue+1)
	for _, v := range values {
		count[v]++
	}
	return count
}
