package frameformat

import (
	"fmt"

	"github.com/jmoiron/zstd1/internal/bitstream"
	"github.com/jmoiron/zstd1/internal/huff"
)

// LiteralsBlockType is the 2-bit type field of the literals section
// header, spec §6 "Compressed block".
type LiteralsBlockType byte

const (
	LiteralsRaw LiteralsBlockType = iota
	LiteralsRLE
	LiteralsCompressed
	literalsTreeless // "repeat" huffman table from the previous block; not produced by this encoder, see DESIGN.md
)

// WriteLiteralsSection picks the smallest of raw/RLE/Huffman encodings
// for literals and appends the section (header + payload) to dst, per
// spec §4.8 step 5. Huffman is attempted only for 64 or more literals,
// with freq as the literal byte histogram.
func WriteLiteralsSection(dst []byte, literals []byte, freq []uint32) []byte {
	regenSize := len(literals)

	if regenSize == 0 {
		return writeLiteralsHeader(dst, LiteralsRaw, 0, 0)
	}

	allSame := true
	for _, b := range literals {
		if b != literals[0] {
			allSame = false
			break
		}
	}
	if allSame {
		dst = writeLiteralsHeader(dst, LiteralsRLE, regenSize, 0)
		return append(dst, literals[0])
	}

	if regenSize >= 64 {
		if payload, ok := tryHuffman(literals, freq); ok && len(payload) < regenSize {
			return writeLiteralsSectionCompressed(dst, regenSize, payload)
		}
	}

	dst = writeLiteralsHeader(dst, LiteralsRaw, regenSize, 0)
	return append(dst, literals...)
}

// tryHuffman builds a Huffman table from freq (the literal byte
// histogram) and encodes literals with it, returning the weight table
// header plus the coded bitstream in one payload. Returns ok=false if
// the table could not be built (no byte has a nonzero count) or a
// literal has no code.
func tryHuffman(literals []byte, freq []uint32) ([]byte, bool) {
	ct, err := huff.BuildCTable(freq, huff.MaxSymbolValue, huff.MaxTableLog)
	if err != nil {
		return nil, false
	}

	w := bitstream.NewWriter(nil)
	for i := len(literals) - 1; i >= 0; i-- {
		if err := ct.Encode(w, literals[i]); err != nil {
			return nil, false
		}
	}
	body := w.Close()

	weights := ct.Weights(huff.MaxSymbolValue)
	header := encodeWeights(weights)

	payload := make([]byte, 0, 1+len(header)+len(body))
	payload = append(payload, byte(len(header)))
	payload = append(payload, header...)
	payload = append(payload, body...)
	return payload, true
}

// encodeWeights writes the raw (uncompressed) weight table: one nibble
// per symbol up to the highest nonzero-weight symbol, the simpler of
// the two header encodings HUF_writeCTable supports (the other being
// an FSE-compressed weight stream, not implemented here — see
// DESIGN.md).
func encodeWeights(weights []uint8) []byte {
	last := 0
	for i, w := range weights {
		if w != 0 {
			last = i
		}
	}
	weights = weights[:last+1]

	out := make([]byte, 0, (len(weights)+1)/2)
	for i := 0; i < len(weights); i += 2 {
		hi := weights[i]
		lo := uint8(0)
		if i+1 < len(weights) {
			lo = weights[i+1]
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

func decodeWeights(src []byte, count int) ([]uint8, error) {
	weights := make([]uint8, 0, count*2)
	for _, b := range src {
		weights = append(weights, b>>4, b&0xF)
	}
	// encodeWeights stops at the highest nonzero weight; every symbol
	// after it has weight 0.
	for len(weights) < count {
		weights = append(weights, 0)
	}
	return weights[:count], nil
}

// writeLiteralsHeader appends the 1-3 byte literals section header
// for the raw/RLE cases (no compressed size field), following spec
// §6's SizeFormat encoding.
func writeLiteralsHeader(dst []byte, typ LiteralsBlockType, regenSize, _ int) []byte {
	switch {
	case regenSize < 32:
		b := byte(typ) | byte(0)<<2 | byte(regenSize)<<3
		return append(dst, b)
	case regenSize < 4096:
		b0 := byte(typ) | byte(1)<<2 | byte(regenSize&0xF)<<4
		b1 := byte(regenSize >> 4)
		return append(dst, b0, b1)
	default:
		b0 := byte(typ) | byte(3)<<2 | byte(regenSize&0xF)<<4
		rest := regenSize >> 4
		return append(dst, b0, byte(rest), byte(rest>>8))
	}
}

// writeLiteralsSectionCompressed appends the Huffman-compressed
// literals header (which additionally carries a compressed-size
// field) plus the payload tryHuffman already produced.
func writeLiteralsSectionCompressed(dst []byte, regenSize int, payload []byte) []byte {
	cSize := len(payload)
	switch {
	case regenSize < 1024 && cSize < 1024:
		b0 := byte(LiteralsCompressed) | byte(0)<<2 | byte(regenSize&0xF)<<4
		b1 := byte(regenSize>>4) | byte(cSize&0x3F)<<6
		b2 := byte(cSize >> 2)
		dst = append(dst, b0, b1, b2)
	case regenSize < 16384 && cSize < 16384:
		b0 := byte(LiteralsCompressed) | byte(2)<<2 | byte(regenSize&0xF)<<4
		b1 := byte(regenSize >> 4)
		b2 := byte(regenSize>>12)&0x3 | byte(cSize)<<2
		b3 := byte(cSize >> 6)
		dst = append(dst, b0, b1, b2, b3)
	default:
		b0 := byte(LiteralsCompressed) | byte(3)<<2 | byte(regenSize&0xF)<<4
		b1 := byte(regenSize >> 4)
		b2 := byte(regenSize>>12)&0x3F | byte(cSize)<<6
		b3 := byte(cSize >> 2)
		b4 := byte(cSize >> 10)
		dst = append(dst, b0, b1, b2, b3, b4)
	}
	return append(dst, payload...)
}

// ReadLiteralsSection parses the literals section at src[0:], returning
// the decoded literal bytes and the number of header+payload bytes
// consumed.
func ReadLiteralsSection(src []byte) (literals []byte, consumed int, err error) {
	if len(src) < 1 {
		return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
	}
	typ := LiteralsBlockType(src[0] & 0x3)
	sizeFormat := (src[0] >> 2) & 0x3

	switch typ {
	case LiteralsRaw, LiteralsRLE:
		var regenSize, headerLen int
		switch sizeFormat {
		case 0, 2:
			regenSize = int(src[0] >> 3)
			headerLen = 1
		case 1:
			if len(src) < 2 {
				return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
			}
			regenSize = int(src[0]>>4) | int(src[1])<<4
			headerLen = 2
		case 3:
			if len(src) < 3 {
				return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
			}
			regenSize = int(src[0]>>4) | int(src[1])<<4 | int(src[2])<<12
			headerLen = 3
		}

		if typ == LiteralsRLE {
			if headerLen >= len(src) {
				return nil, 0, fmt.Errorf("frameformat: RLE literals truncated: %w", ErrSrcSizeWrong)
			}
			lit := make([]byte, regenSize)
			for i := range lit {
				lit[i] = src[headerLen]
			}
			return lit, headerLen + 1, nil
		}
		if headerLen+regenSize > len(src) {
			return nil, 0, fmt.Errorf("frameformat: raw literals truncated: %w", ErrSrcSizeWrong)
		}
		return src[headerLen : headerLen+regenSize], headerLen + regenSize, nil

	case LiteralsCompressed, literalsTreeless:
		var regenSize, cSize, headerLen int
		switch sizeFormat {
		case 0:
			if len(src) < 3 {
				return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
			}
			regenSize = int(src[0]>>4) | int(src[1]&0x3F)<<4
			cSize = int(src[1]>>6) | int(src[2])<<2
			headerLen = 3
		case 2:
			if len(src) < 4 {
				return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
			}
			regenSize = int(src[0]>>4) | int(src[1])<<4 | int(src[2]&0x3)<<12
			cSize = int(src[2]>>2) | int(src[3])<<6
			headerLen = 4
		case 3:
			if len(src) < 5 {
				return nil, 0, fmt.Errorf("frameformat: literals header truncated: %w", ErrSrcSizeWrong)
			}
			regenSize = int(src[0]>>4) | int(src[1])<<4 | int(src[2]&0x3F)<<12
			cSize = int(src[2]>>6) | int(src[3])<<2 | int(src[4])<<10
			headerLen = 5
		default:
			return nil, 0, fmt.Errorf("frameformat: reserved literals size format: %w", ErrFrameParameterUnsupported)
		}

		if headerLen+cSize > len(src) {
			return nil, 0, fmt.Errorf("frameformat: compressed literals truncated: %w", ErrSrcSizeWrong)
		}
		payload := src[headerLen : headerLen+cSize]
		lit, err := decodeHuffmanLiterals(payload, regenSize)
		if err != nil {
			return nil, 0, err
		}
		return lit, headerLen + cSize, nil
	}

	return nil, 0, fmt.Errorf("frameformat: unknown literals type: %w", ErrCorruptionDetected)
}

func decodeHuffmanLiterals(payload []byte, regenSize int) ([]byte, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("frameformat: huffman payload empty: %w", ErrCorruptionDetected)
	}
	headerLen := int(payload[0])
	if 1+headerLen > len(payload) {
		return nil, fmt.Errorf("frameformat: huffman weight table truncated: %w", ErrCorruptionDetected)
	}
	weights, err := decodeWeights(payload[1:1+headerLen], huff.MaxSymbolValue+1)
	if err != nil {
		return nil, err
	}
	dt, err := huff.BuildDTableFromWeights(weights, huff.MaxTableLog)
	if err != nil {
		return nil, err
	}

	body := payload[1+headerLen:]
	if len(body) == 0 {
		if regenSize != 0 {
			return nil, fmt.Errorf("frameformat: huffman body empty: %w", ErrCorruptionDetected)
		}
		return nil, nil
	}
	r, err := bitstream.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("frameformat: huffman bitstream: %w", err)
	}

	lit := make([]byte, regenSize)
	for i := 0; i < regenSize; i++ {
		sym, err := dt.Decode(r)
		if err != nil {
			return nil, err
		}
		lit[i] = sym
		r.Reload()
	}
	return lit, nil
}
