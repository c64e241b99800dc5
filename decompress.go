package zstd1

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/zstd1/internal/frameformat"
	"github.com/jmoiron/zstd1/internal/sequence"
)

// Decompressor holds the mutable state of one decompression context
// (spec §5): the repcode triple carried across blocks within a frame.
// Like Compressor, it is not safe for concurrent use.
type Decompressor struct {
	rep sequence.Repcodes
}

// NewDecompressor returns a ready-to-use Decompressor.
func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// Reset clears the repcode history, spec §4.5's "reset to (1,4,8) at
// the start of every frame."
func (d *Decompressor) Reset() {
	d.rep = sequence.NewRepcodes()
}

// Decompress appends src's decoded frame content to dst, spec §6's
// `decompress(dst, src)` contract.
func (d *Decompressor) Decompress(dst, src []byte) ([]byte, error) {
	d.Reset()

	hdr, n, err := frameformat.ReadFrameHeader(src)
	if err != nil {
		return nil, fmt.Errorf("zstd1: %w", err)
	}
	src = src[n:]
	start := len(dst)

	for {
		last, typ, size, err := frameformat.ReadBlockHeader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd1: %w", err)
		}
		src = src[3:]
		bodyLen := size
		if typ == frameformat.BlockRLE {
			bodyLen = 1 // size is the regenerated length; one byte follows
		}
		if len(src) < bodyLen {
			return nil, fmt.Errorf("zstd1: block body truncated: %w", ErrSrcSizeWrong)
		}
		body := src[:bodyLen]
		src = src[bodyLen:]

		switch typ {
		case frameformat.BlockRaw:
			dst = append(dst, body...)
		case frameformat.BlockRLE:
			for i := 0; i < size; i++ {
				dst = append(dst, body[0])
			}
		case frameformat.BlockCompressed:
			dst, err = d.decompressBlock(dst, body)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("zstd1: reserved block type: %w", ErrCorruptionDetected)
		}

		if last {
			break
		}
	}

	if hdr.HasContentSize && uint64(len(dst)-start) != hdr.ContentSize {
		return nil, fmt.Errorf("zstd1: content size mismatch: %w", ErrCorruptionDetected)
	}

	if hdr.ContentChecksum {
		if len(src) < 4 {
			return nil, fmt.Errorf("zstd1: checksum truncated: %w", ErrSrcSizeWrong)
		}
		want := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
		got := uint32(xxhash.Sum64(dst[start:]))
		if want != got {
			return nil, fmt.Errorf("zstd1: %w", ErrChecksumWrong)
		}
	}

	return dst, nil
}

// decompressBlock parses one compressed block's literals and
// sequences sections and replays the sequences against the literal
// buffer and dst's already-decoded tail, spec §4.8's decode direction
// (the inverse of Compressor.emitBlock).
func (d *Decompressor) decompressBlock(dst, body []byte) ([]byte, error) {
	literals, n, err := frameformat.ReadLiteralsSection(body)
	if err != nil {
		return nil, fmt.Errorf("zstd1: literals section: %w", err)
	}
	body = body[n:]

	seqs, _, err := frameformat.ReadSequencesSection(body)
	if err != nil {
		return nil, fmt.Errorf("zstd1: sequences section: %w", err)
	}

	litPos := 0
	for _, s := range seqs {
		if litPos+int(s.LitLength) > len(literals) {
			return nil, fmt.Errorf("zstd1: literal run overruns buffer: %w", ErrCorruptionDetected)
		}
		dst = append(dst, literals[litPos:litPos+int(s.LitLength)]...)
		litPos += int(s.LitLength)

		if s.MatchLength == 0 {
			continue
		}
		distance, err := d.rep.Apply(s.LitLength, s.OffsetValue)
		if err != nil {
			return nil, fmt.Errorf("zstd1: %w: %w", err, ErrCorruptionDetected)
		}
		start := len(dst) - int(distance)
		if start < 0 {
			return nil, fmt.Errorf("zstd1: offset exceeds decoded history: %w", ErrCorruptionDetected)
		}
		for i := 0; i < int(s.MatchLength); i++ {
			dst = append(dst, dst[start+i])
		}
	}

	if litPos < len(literals) {
		dst = append(dst, literals[litPos:]...)
	}

	return dst, nil
}
