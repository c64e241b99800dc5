package frameformat

import (
	"encoding/binary"
	"fmt"
)

// Magic is the zstd frame magic number, spec §6 "Magic number", written
// little-endian.
const Magic uint32 = 0xFD2FB528

// SkippableMagicMin and SkippableMagicMax bound the 16 reserved
// skippable-frame magic numbers (spec §6 "Skippable frame").
const (
	SkippableMagicMin uint32 = 0x184D2A50
	SkippableMagicMax uint32 = 0x184D2A5F
)

// FrameHeader carries the decoded frame header fields (spec §6 "Frame
// format"). ContentSize is only meaningful when HasContentSize is set;
// a frame may omit it entirely (streaming, unknown length).
type FrameHeader struct {
	SingleSegment    bool
	ContentChecksum  bool
	HasContentSize   bool
	ContentSize      uint64
	HasDictID        bool
	DictID           uint32
	WindowSize       uint64
}

// windowSizeFromDescriptor reconstructs windowSize from the 1-byte
// window descriptor, per spec §6: windowSize = (1<<Exponent) *
// (8+Mantissa)/8.
func windowSizeFromDescriptor(wd byte) uint64 {
	exponent := uint(wd >> 3)
	mantissa := uint64(wd & 0x7)
	base := uint64(1) << exponent
	return base * (8 + mantissa) / 8
}

// windowDescriptorFor picks the smallest {exponent,mantissa} pair whose
// derived windowSize is >= want, the inverse of windowSizeFromDescriptor.
func windowDescriptorFor(want uint64) byte {
	if want < 1024 {
		want = 1024
	}
	for exponent := uint(10); exponent <= 31; exponent++ {
		base := uint64(1) << exponent
		for mantissa := uint64(0); mantissa < 8; mantissa++ {
			size := base * (8 + mantissa) / 8
			if size >= want {
				return byte(exponent<<3) | byte(mantissa)
			}
		}
	}
	return byte(31 << 3) // largest representable window
}

// fcsFieldSize returns the wire size of the frame content size field
// for a given FCS_field_size code (0,1,2,3) and SingleSegment flag,
// per spec §6: code 0 means 1 byte (implicit) when SingleSegment,
// else the field is entirely absent.
func fcsFieldSize(code byte, singleSegment bool) int {
	switch code {
	case 0:
		if singleSegment {
			return 1
		}
		return 0
	case 1:
		return 2
	case 2:
		return 4
	case 3:
		return 8
	}
	return 0
}

// WriteFrameHeader appends the magic number and frame header to dst,
// following spec §6's descriptor-byte layout exactly.
func WriteFrameHeader(dst []byte, h FrameHeader) []byte {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], Magic)
	dst = append(dst, magic[:]...)

	var fcsCode byte
	switch {
	case !h.HasContentSize:
		fcsCode = 0
	case h.ContentSize < 256:
		fcsCode = 0
	case h.ContentSize <= 0xFFFF+256:
		fcsCode = 1
	case h.ContentSize <= 0xFFFFFFFF:
		fcsCode = 2
	default:
		fcsCode = 3
	}
	if h.SingleSegment && !h.HasContentSize {
		// SingleSegment frames must carry a content size (there is no
		// window descriptor to bound the segment otherwise).
		fcsCode = 0
	}

	var dictIDCode byte
	switch {
	case !h.HasDictID || h.DictID == 0:
		dictIDCode = 0
	case h.DictID < 256:
		dictIDCode = 1
	case h.DictID < 65536:
		dictIDCode = 2
	default:
		dictIDCode = 3
	}

	var descriptor byte
	descriptor |= fcsCode << 6
	if h.SingleSegment {
		descriptor |= 1 << 5
	}
	if h.ContentChecksum {
		descriptor |= 1 << 2
	}
	descriptor |= dictIDCode
	dst = append(dst, descriptor)

	if !h.SingleSegment {
		dst = append(dst, windowDescriptorFor(h.WindowSize))
	}

	switch dictIDCode {
	case 1:
		dst = append(dst, byte(h.DictID))
	case 2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(h.DictID))
		dst = append(dst, b[:]...)
	case 3:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], h.DictID)
		dst = append(dst, b[:]...)
	}

	switch fcsFieldSize(fcsCode, h.SingleSegment) {
	case 1:
		dst = append(dst, byte(h.ContentSize))
	case 2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(h.ContentSize-256))
		dst = append(dst, b[:]...)
	case 4:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(h.ContentSize))
		dst = append(dst, b[:]...)
	case 8:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], h.ContentSize)
		dst = append(dst, b[:]...)
	}

	return dst
}

// ReadFrameHeader parses the magic number and frame header starting at
// src[0], returning the decoded header and the number of bytes
// consumed.
func ReadFrameHeader(src []byte) (FrameHeader, int, error) {
	if len(src) < 5 {
		return FrameHeader{}, 0, fmt.Errorf("frameformat: header truncated: %w", ErrSrcSizeWrong)
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic != Magic {
		return FrameHeader{}, 0, fmt.Errorf("frameformat: bad magic %#x: %w", magic, ErrPrefixUnknown)
	}

	descriptor := src[4]
	fcsCode := descriptor >> 6
	singleSegment := descriptor&(1<<5) != 0
	reserved := descriptor&(1<<3) != 0
	checksum := descriptor&(1<<2) != 0
	dictIDCode := descriptor & 0x3

	if reserved {
		return FrameHeader{}, 0, fmt.Errorf("frameformat: reserved bit set: %w", ErrFrameParameterUnsupported)
	}

	pos := 5
	h := FrameHeader{SingleSegment: singleSegment, ContentChecksum: checksum}

	if !singleSegment {
		if pos >= len(src) {
			return FrameHeader{}, 0, fmt.Errorf("frameformat: header truncated: %w", ErrSrcSizeWrong)
		}
		h.WindowSize = windowSizeFromDescriptor(src[pos])
		pos++
	}

	dictIDLen := map[byte]int{0: 0, 1: 1, 2: 2, 3: 4}[dictIDCode]
	if pos+dictIDLen > len(src) {
		return FrameHeader{}, 0, fmt.Errorf("frameformat: header truncated: %w", ErrSrcSizeWrong)
	}
	switch dictIDCode {
	case 1:
		h.HasDictID = true
		h.DictID = uint32(src[pos])
	case 2:
		h.HasDictID = true
		h.DictID = uint32(binary.LittleEndian.Uint16(src[pos:]))
	case 3:
		h.HasDictID = true
		h.DictID = binary.LittleEndian.Uint32(src[pos:])
	}
	pos += dictIDLen

	fcsLen := fcsFieldSize(fcsCode, singleSegment)
	if pos+fcsLen > len(src) {
		return FrameHeader{}, 0, fmt.Errorf("frameformat: header truncated: %w", ErrSrcSizeWrong)
	}
	switch fcsLen {
	case 1:
		h.HasContentSize = true
		h.ContentSize = uint64(src[pos])
	case 2:
		h.HasContentSize = true
		h.ContentSize = uint64(binary.LittleEndian.Uint16(src[pos:])) + 256
	case 4:
		h.HasContentSize = true
		h.ContentSize = uint64(binary.LittleEndian.Uint32(src[pos:]))
	case 8:
		h.HasContentSize = true
		h.ContentSize = binary.LittleEndian.Uint64(src[pos:])
	}
	pos += fcsLen

	if singleSegment {
		h.WindowSize = h.ContentSize
	}

	return h, pos, nil
}
