package fse

import (
	"errors"
	"fmt"
)

// ncount.go implements spec §4.4: the compact variable-length
// serialization of a normalized distribution plus its tableLog.
//
// Unlike the symbol bitstream (package-level codec.go / the
// bitstream package), the NCount header is read forward, LSB-first,
// directly off the byte buffer — there is no reverse marker here, it
// is a plain prefix of the sequences-section header. lsbReader/lsbWriter
// below are the minimal forward cursor that scheme needs.

var (
	ErrNCountCorrupt = errors.New("fse: corrupt NCount header")
)

type lsbWriter struct {
	dst  []byte
	acc  uint64
	bits uint
}

func (w *lsbWriter) add(v uint32, n uint) {
	w.acc |= uint64(v&((1<<n)-1)) << w.bits
	w.bits += n
	for w.bits >= 8 {
		w.dst = append(w.dst, byte(w.acc))
		w.acc >>= 8
		w.bits -= 8
	}
}

func (w *lsbWriter) finish() []byte {
	if w.bits > 0 {
		w.dst = append(w.dst, byte(w.acc))
		w.acc = 0
		w.bits = 0
	}
	return w.dst
}

type lsbReader struct {
	src     []byte
	bytePos int
	acc     uint64
	bits    uint
}

func newLsbReader(src []byte) *lsbReader {
	return &lsbReader{src: src}
}

func (r *lsbReader) ensure(n uint) error {
	for r.bits < n {
		if r.bytePos >= len(r.src) {
			return fmt.Errorf("fse: NCount header truncated: %w", ErrNCountCorrupt)
		}
		r.acc |= uint64(r.src[r.bytePos]) << r.bits
		r.bytePos++
		r.bits += 8
	}
	return nil
}

func (r *lsbReader) read(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := r.ensure(n); err != nil {
		return 0, err
	}
	v := uint32(r.acc) & (1<<n - 1)
	r.acc >>= n
	r.bits -= n
	return v, nil
}

// consumedBytes reports how many whole bytes of src have been
// committed to the logical cursor (i.e. are no longer needed), which
// is also how many header bytes the caller should skip before the
// entropy-coded payload.
func (r *lsbReader) consumedBytes() int {
	return r.bytePos - int(r.bits/8)
}

// WriteNCount serializes (tableLog, norm[0..maxSymbolValue]) per spec
// §4.4. norm must satisfy the sum(|N[s]|) == 2^tableLog invariant.
func WriteNCount(norm []int16, maxSymbolValue int, tableLog uint) ([]byte, error) {
	if tableLog < MinTableLog || tableLog > MaxTableLog {
		return nil, ErrTableLogTooLarge
	}
	w := &lsbWriter{}
	w.add(uint32(tableLog-MinTableLog), 4)

	remaining := int32(1<<tableLog) + 1
	nbBits := tableLog + 1
	threshold := int32(1) << tableLog

	charnum := 0
	previous0 := false
	for charnum <= maxSymbolValue {
		if previous0 {
			// Count the run of consecutive zero-frequency symbols and
			// emit it as repeating 2-bit groups; 0b11 continues the run.
			zeroRun := 0
			for charnum+zeroRun <= maxSymbolValue && norm[charnum+zeroRun] == 0 {
				zeroRun++
			}
			charnum += zeroRun
			for zeroRun >= 3 {
				w.add(0b11, 2)
				zeroRun -= 3
			}
			w.add(uint32(zeroRun), 2)
			previous0 = false
			if charnum > maxSymbolValue {
				break
			}
		}

		count := int32(norm[charnum])
		charnum++
		biased := count + 1 // shift so -1 (less-than-one) encodes as 0
		max := 2*threshold - 1 - remaining
		if biased < max {
			w.add(uint32(biased), nbBits-1)
		} else {
			v := biased
			if biased >= threshold {
				v += max
			}
			w.add(uint32(v), nbBits)
		}
		if count < 0 {
			remaining -= -count
		} else {
			remaining -= count
		}
		previous0 = count == 0
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
	}

	return w.finish(), nil
}

// ReadNCount parses a header written by WriteNCount. It returns the
// normalized distribution (length maxSymbolValue+1), the tableLog, and
// the number of bytes of src consumed.
func ReadNCount(src []byte, maxSymbolValue int) (norm []int16, tableLog uint, consumed int, err error) {
	r := newLsbReader(src)
	raw, err := r.read(4)
	if err != nil {
		return nil, 0, 0, err
	}
	tableLog = uint(raw) + MinTableLog
	if tableLog > MaxTableLog {
		return nil, 0, 0, ErrTableLogTooLarge
	}

	norm = make([]int16, maxSymbolValue+1)
	remaining := int32(1<<tableLog) + 1
	nbBits := tableLog + 1
	threshold := int32(1) << tableLog

	charnum := 0
	previous0 := false
	for charnum <= maxSymbolValue {
		if previous0 {
			for {
				v, err := r.read(2)
				if err != nil {
					return nil, 0, 0, err
				}
				if v == 0b11 {
					charnum += 3
					if charnum > maxSymbolValue+1 {
						return nil, 0, 0, fmt.Errorf("fse: NCount symbol overrun: %w", ErrNCountCorrupt)
					}
					continue
				}
				charnum += int(v)
				break
			}
			previous0 = false
			if charnum > maxSymbolValue {
				break
			}
		}

		max := 2*threshold - 1 - remaining
		low, err := r.read(nbBits - 1)
		if err != nil {
			return nil, 0, 0, err
		}
		var biased int32
		if int32(low) < max {
			biased = int32(low)
		} else {
			extra, err := r.read(1)
			if err != nil {
				return nil, 0, 0, err
			}
			v := int32(low) | int32(extra)<<(nbBits-1)
			if v >= threshold {
				v -= max
			}
			biased = v
		}
		count := biased - 1
		if charnum > maxSymbolValue {
			return nil, 0, 0, fmt.Errorf("fse: too many NCount symbols: %w", ErrNCountCorrupt)
		}
		norm[charnum] = int16(count)
		charnum++
		if count < 0 {
			remaining -= -count
		} else {
			remaining -= count
		}
		previous0 = count == 0
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
		if remaining < 1 {
			return nil, 0, 0, fmt.Errorf("fse: NCount remaining underflow: %w", ErrNCountCorrupt)
		}
	}

	return norm, tableLog, r.consumedBytes(), nil
}

// NCountWriteBound is a safe upper bound on the serialized header
// size, per spec §4.4.
func NCountWriteBound(maxSymbolValue int, tableLog uint) int {
	_ = tableLog
	return (maxSymbolValue+1)*2 + 8
}
