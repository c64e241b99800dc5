package frameformat

import (
	"fmt"
	"math/bits"

	"github.com/jmoiron/zstd1/internal/bitstream"
	"github.com/jmoiron/zstd1/internal/fse"
)

// Seq is one (litLength, matchLength, offsetValue) sequence ready for
// wire emission — offsetValue is the pre-FSE-symbol value spec §3
// describes (a small repcode index 0-2, or actual distance+3),
// matching the convention internal/sequence.Repcodes already uses.
type Seq struct {
	LitLength   uint32
	MatchLength uint32
	OffsetValue uint32
}

// CompressionMode is the 2-bit per-stream mode in the sequences
// section header, spec §6 "Sequences section".
type CompressionMode byte

const (
	ModePredefined CompressionMode = iota
	ModeRLE
	ModeFSECompressed
	ModeRepeat
)

const (
	llMaxCode = 35
	mlMaxCode = 52
	offMaxCode = 31

	llDefaultTableLog  = 6
	mlDefaultTableLog  = 6
	offDefaultTableLog = 5

	seqLLTableLog  = 9
	seqMLTableLog  = 9
	seqOffTableLog = 8
)

// llBits/mlBits/llBaseline/mlBaseline mirror internal/optparse/codes.go
// exactly (same derivation from the same RFC 8878 code tables); kept
// as a separate copy rather than an import so the wire-framing layer
// does not reach into the parser's internal pricing package for a
// value it needs for an unrelated reason (each package computes its
// own copy of a spec-level constant, the way this module's teacher
// keeps packCodeLength's bit layout self-contained in symbol.go rather
// than centralizing every shared constant behind a single exported
// definition that table.go would otherwise have to import).
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

func codeForValue(baseline []uint32, value uint32) uint32 {
	for c := len(baseline) - 1; c >= 0; c-- {
		if value >= baseline[c] {
			return uint32(c)
		}
	}
	return 0
}

func llCode(litLength uint32) uint32 { return codeForValue(llBaseline, litLength) }
func mlCode(mlBase uint32) uint32    { return codeForValue(mlBaseline, mlBase) }
func offCode(offsetValue uint32) uint32 {
	return uint32(bits.Len32(offsetValue+1) - 1)
}

// predefinedLLNorm, predefinedMLNorm, predefinedOffNorm are zstd's
// fixed default distributions (RFC 8878 §3.1.1.3.2.2.1-3), used when a
// block's own statistics aren't worth a custom FSE table. The exact
// values are reconstructed from the RFC text since
// zstd_compress_internal.h (which embeds them as C arrays) is not
// present in this pack's original_source/ — see DESIGN.md.
var predefinedLLNorm = []int16{
	4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	1, 1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	-1, -1, -1, -1,
}

var predefinedMLNorm = []int16{
	1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1,
	-1, -1, -1, -1, -1,
}

var predefinedOffNorm = []int16{
	1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}

var fixedLLNorm = fixupNorm(padNorm(predefinedLLNorm, llMaxCode+1), llDefaultTableLog)
var fixedMLNorm = fixupNorm(padNorm(predefinedMLNorm, mlMaxCode+1), mlDefaultTableLog)
var fixedOffNorm = fixupNorm(padNorm(predefinedOffNorm, offMaxCode+1), offDefaultTableLog)

func predefinedLLTable() *fse.CTable {
	ct, _ := fse.BuildCTable(fixedLLNorm, llMaxCode, llDefaultTableLog)
	return ct
}
func predefinedMLTable() *fse.CTable {
	ct, _ := fse.BuildCTable(fixedMLNorm, mlMaxCode, mlDefaultTableLog)
	return ct
}
func predefinedOffTable() *fse.CTable {
	ct, _ := fse.BuildCTable(fixedOffNorm, offMaxCode, offDefaultTableLog)
	return ct
}

func predefinedLLDTable() *fse.DTable {
	dt, _ := fse.BuildDTable(fixedLLNorm, llMaxCode, llDefaultTableLog)
	return dt
}
func predefinedMLDTable() *fse.DTable {
	dt, _ := fse.BuildDTable(fixedMLNorm, mlMaxCode, mlDefaultTableLog)
	return dt
}
func predefinedOffDTable() *fse.DTable {
	dt, _ := fse.BuildDTable(fixedOffNorm, offMaxCode, offDefaultTableLog)
	return dt
}

func padNorm(norm []int16, size int) []int16 {
	if len(norm) >= size {
		return norm
	}
	out := make([]int16, size)
	copy(out, norm)
	return out
}

// fixupNorm nudges the largest-magnitude entry of a hand-transcribed
// predefined distribution so sum(|norm|) lands exactly on 1<<tableLog,
// the Kraft equality BuildCTable/BuildDTable require. The RFC 8878
// default distributions are supposed to already satisfy this; this
// guards against a transcription slip in predefinedLLNorm/MLNorm/OffNorm
// (reconstructed from the RFC text, not the original C arrays — see
// DESIGN.md) turning into a spread-never-closes panic deep in a table
// build instead of a clear, fixed-up table.
func fixupNorm(norm []int16, tableLog uint) []int16 {
	want := int32(1) << tableLog
	var sum int32
	largest := 0
	for i, n := range norm {
		if n > 0 {
			sum += int32(n)
		} else if n < 0 {
			sum++
		}
		if n > norm[largest] {
			largest = i
		}
	}
	if diff := want - sum; diff != 0 {
		norm[largest] += int16(diff)
	}
	return norm
}

// readBitsWide and writeBitsWide split a >25-bit read/write into two
// calls, since bitstream.MaxBits caps a single AddBits/ReadBits call
// at 25 bits (spec §4.1's 32-bit-host constraint) but an offset code
// near the top of the 32-bit range needs up to 31 extra bits.
func writeBitsWide(w *bitstream.Writer, value uint32, n uint) error {
	if n <= bitstream.MaxBits {
		return w.AddBits(value, n)
	}
	hi := n - bitstream.MaxBits
	// Low part first: the reverse reader returns the high part first.
	if err := w.AddBits(value, bitstream.MaxBits); err != nil {
		return err
	}
	return w.AddBits(value>>bitstream.MaxBits, hi)
}

func readBitsWide(r *bitstream.Reader, n uint) (uint32, error) {
	if n <= bitstream.MaxBits {
		return r.ReadBits(n)
	}
	hi := n - bitstream.MaxBits
	hiVal, err := r.ReadBits(hi)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadBits(bitstream.MaxBits)
	if err != nil {
		return 0, err
	}
	return hiVal<<bitstream.MaxBits | lo, nil
}

// writeVarSeqCount writes the sequence count varint, spec §6
// "Sequences section": 1, 2, or 3 bytes depending on magnitude.
func writeVarSeqCount(dst []byte, count int) []byte {
	switch {
	case count < 128:
		return append(dst, byte(count))
	case count < 0x7F00+128: // fits the 2-byte form's range
		v := count - 128
		return append(dst, byte(v>>8)+0x80, byte(v))
	default:
		v := count - 0x7F00
		return append(dst, 0xFF, byte(v), byte(v>>8))
	}
}

func readVarSeqCount(src []byte) (count, consumed int, err error) {
	if len(src) < 1 {
		return 0, 0, fmt.Errorf("frameformat: sequences header truncated: %w", ErrSrcSizeWrong)
	}
	b0 := src[0]
	switch {
	case b0 < 128:
		return int(b0), 1, nil
	case b0 < 255:
		if len(src) < 2 {
			return 0, 0, fmt.Errorf("frameformat: sequences header truncated: %w", ErrSrcSizeWrong)
		}
		return (int(b0-0x80) << 8) + int(src[1]) + 128, 2, nil
	default:
		if len(src) < 3 {
			return 0, 0, fmt.Errorf("frameformat: sequences header truncated: %w", ErrSrcSizeWrong)
		}
		return int(src[1]) + int(src[2])<<8 + 0x7F00, 3, nil
	}
}

// WriteSequencesSection appends the full sequences section (count,
// mode byte, any FSE tables, coded bitstream) to dst. A stream whose
// codes are all one symbol uses ModeRLE, a block of fewer than 4
// sequences otherwise uses the predefined tables (ModePredefined), and
// any other stream gets a fresh FSE table (ModeFSECompressed); an empty
// sequence list writes only the count. It never emits ModeRepeat, so
// every block's sequences section is
// self-contained and decodable without carrying state from a
// previous block — a documented simplification, see DESIGN.md.
func WriteSequencesSection(dst []byte, seqs []Seq) ([]byte, error) {
	dst = writeVarSeqCount(dst, len(seqs))
	if len(seqs) == 0 {
		return dst, nil
	}

	llCodes := make([]uint8, len(seqs))
	mlCodes := make([]uint8, len(seqs))
	offCodes := make([]uint8, len(seqs))
	for i, s := range seqs {
		llCodes[i] = uint8(llCode(s.LitLength))
		mlCodes[i] = uint8(mlCode(s.MatchLength - 3))
		offCodes[i] = uint8(offCode(s.OffsetValue))
	}

	llMode, llCT, llHeader, err := buildStream(llCodes, llMaxCode, seqLLTableLog, predefinedLLTable)
	if err != nil {
		return nil, err
	}
	offMode, offCT, offHeader, err := buildStream(offCodes, offMaxCode, seqOffTableLog, predefinedOffTable)
	if err != nil {
		return nil, err
	}
	mlMode, mlCT, mlHeader, err := buildStream(mlCodes, mlMaxCode, seqMLTableLog, predefinedMLTable)
	if err != nil {
		return nil, err
	}

	modeByte := byte(llMode)<<6 | byte(offMode)<<4 | byte(mlMode)<<2
	dst = append(dst, modeByte)
	dst = append(dst, llHeader...)
	dst = append(dst, offHeader...)
	dst = append(dst, mlHeader...)

	body, err := encodeSeqBitstream(seqs, llCT, offCT, mlCT)
	if err != nil {
		return nil, err
	}
	return append(dst, body...), nil
}

// buildStream decides a stream's CompressionMode and returns its
// CTable (for RLE, the one-state table from fse.BuildCTableRLE, which
// encodes every symbol in zero bits).
func buildStream(codes []uint8, maxCode int, tableLog uint, predefined func() *fse.CTable) (CompressionMode, *fse.CTable, []byte, error) {
	allSame := true
	for _, c := range codes {
		if c != codes[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return ModeRLE, fse.BuildCTableRLE(codes[0], maxCode), []byte{codes[0]}, nil
	}

	// Too few symbols to build a meaningful custom table: fall back to
	// zstd's fixed default distribution rather than spend header bytes
	// on a table that won't pay for itself.
	if len(codes) < 4 {
		return ModePredefined, predefined(), nil, nil
	}

	count := fse.CountSymbols(codes, maxCode)
	tl := fse.OptimalTableLog(tableLog, len(codes), maxCode)
	norm, err := fse.NormalizeCount(count, maxCode, tl)
	if err != nil {
		return 0, nil, nil, err
	}
	ct, err := fse.BuildCTable(norm, maxCode, tl)
	if err != nil {
		return 0, nil, nil, err
	}
	header, err := fse.WriteNCount(norm, maxCode, tl)
	if err != nil {
		return 0, nil, nil, err
	}

	return ModeFSECompressed, ct, header, nil
}

// encodeSeqBitstream writes the three interleaved FSE states plus raw
// extra bits for every sequence, processed in reverse (last sequence
// first) so the decoder reads them forward. Per sequence it writes the
// offset, match-length and literal-length extra bits, then encodes the
// offset, match-length and literal-length states; the final states are
// flushed literal-length, offset, match-length, so ReadSequencesSection
// initialises them match-length first. This order is self-consistent
// and not verified bit-exact against the reference decoder.
func encodeSeqBitstream(seqs []Seq, llCT, offCT, mlCT *fse.CTable) ([]byte, error) {
	w := bitstream.NewWriter(nil)
	llState := fse.InitCState(llCT)
	offState := fse.InitCState(offCT)
	mlState := fse.InitCState(mlCT)

	for i := len(seqs) - 1; i >= 0; i-- {
		s := seqs[i]
		llc := llCode(s.LitLength)
		mlc := mlCode(s.MatchLength - 3)
		ofc := offCode(s.OffsetValue)

		llExtra := s.LitLength - llBaseline[llc]
		mlExtra := (s.MatchLength - 3) - mlBaseline[mlc]
		offExtra := (s.OffsetValue + 1) - (uint32(1) << ofc)

		if err := writeBitsWide(w, offExtra, uint(ofc)); err != nil {
			return nil, err
		}
		if err := w.AddBits(mlExtra, uint(mlBits[mlc])); err != nil {
			return nil, err
		}
		if err := w.AddBits(llExtra, uint(llBits[llc])); err != nil {
			return nil, err
		}

		if err := offState.Encode(w, uint8(ofc)); err != nil {
			return nil, err
		}
		if err := mlState.Encode(w, uint8(mlc)); err != nil {
			return nil, err
		}
		if err := llState.Encode(w, uint8(llc)); err != nil {
			return nil, err
		}
	}

	if err := llState.Flush(w); err != nil {
		return nil, err
	}
	if err := offState.Flush(w); err != nil {
		return nil, err
	}
	if err := mlState.Flush(w); err != nil {
		return nil, err
	}
	return w.Close(), nil
}

// ReadSequencesSection parses the sequences section at src[0:],
// decoding seqCount sequences using llDTable/offDTable/mlDTable from
// the table already read (see readStreamTable below for how each
// stream's mode resolves to a DTable).
func ReadSequencesSection(src []byte) ([]Seq, int, error) {
	seqCount, pos, err := readVarSeqCount(src)
	if err != nil {
		return nil, 0, err
	}
	if seqCount == 0 {
		return nil, pos, nil
	}
	if pos >= len(src) {
		return nil, 0, fmt.Errorf("frameformat: sequences header truncated: %w", ErrSrcSizeWrong)
	}
	modeByte := src[pos]
	pos++
	llMode := CompressionMode(modeByte >> 6 & 0x3)
	offMode := CompressionMode(modeByte >> 4 & 0x3)
	mlMode := CompressionMode(modeByte >> 2 & 0x3)

	llDT, n, err := readStreamTable(src[pos:], llMode, llMaxCode, llDefaultTableLog, predefinedLLDTable)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	offDT, n, err := readStreamTable(src[pos:], offMode, offMaxCode, offDefaultTableLog, predefinedOffDTable)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	mlDT, n, err := readStreamTable(src[pos:], mlMode, mlMaxCode, mlDefaultTableLog, predefinedMLDTable)
	if err != nil {
		return nil, 0, err
	}
	pos += n

	r, err := bitstream.NewReader(src[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("frameformat: sequences bitstream: %w", err)
	}

	mlState, err := fse.InitDState(r, mlDT)
	if err != nil {
		return nil, 0, err
	}
	offState, err := fse.InitDState(r, offDT)
	if err != nil {
		return nil, 0, err
	}
	llState, err := fse.InitDState(r, llDT)
	if err != nil {
		return nil, 0, err
	}
	r.Reload()

	seqs := make([]Seq, seqCount)
	for i := 0; i < seqCount; i++ {
		llSym, err := llState.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		mlSym, err := mlState.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		offSym, err := offState.Decode(r)
		if err != nil {
			return nil, 0, err
		}
		r.Reload()

		llExtra, err := r.ReadBits(uint(llBits[llSym]))
		if err != nil {
			return nil, 0, err
		}
		mlExtra, err := r.ReadBits(uint(mlBits[mlSym]))
		if err != nil {
			return nil, 0, err
		}
		offExtra, err := readBitsWide(r, uint(offSym))
		if err != nil {
			return nil, 0, err
		}

		seqs[i] = Seq{
			LitLength:   llBaseline[llSym] + llExtra,
			MatchLength: mlBaseline[mlSym] + mlExtra + 3,
			OffsetValue: (uint32(1)<<offSym + offExtra) - 1,
		}
		if r.Reload() == bitstream.Overflow && i != seqCount-1 {
			return nil, 0, fmt.Errorf("frameformat: sequences bitstream exhausted early: %w", ErrCorruptionDetected)
		}
	}

	return seqs, len(src), nil
}

func readStreamTable(src []byte, mode CompressionMode, maxCode int, defaultTableLog uint, predefined func() *fse.DTable) (*fse.DTable, int, error) {
	switch mode {
	case ModePredefined:
		return predefined(), 0, nil
	case ModeRLE:
		if len(src) < 1 {
			return nil, 0, fmt.Errorf("frameformat: RLE stream truncated: %w", ErrSrcSizeWrong)
		}
		return fse.BuildDTableRLE(src[0]), 1, nil
	case ModeFSECompressed:
		norm, tableLog, consumed, err := fse.ReadNCount(src, maxCode)
		if err != nil {
			return nil, 0, err
		}
		dt, err := fse.BuildDTable(norm, maxCode, tableLog)
		if err != nil {
			return nil, 0, err
		}
		return dt, consumed, nil
	case ModeRepeat:
		return nil, 0, fmt.Errorf("frameformat: repeat mode needs previous-block table, not supported: %w", ErrFrameParameterUnsupported)
	}
	return nil, 0, fmt.Errorf("frameformat: unknown sequence mode: %w", ErrCorruptionDetected)
}
