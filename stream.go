package zstd1

import (
	"bytes"
	"fmt"
	"io"
)

// Writer wraps an io.Writer and compresses everything written to it
// into a single zstd frame, flushed on Close. Spec §6 only defines
// the whole-buffer compress/decompress calls; this is the mechanical
// io.WriteCloser shim most callers actually want, buffering the full
// input since the optimal parser needs the entire frame content up
// front (see Compressor.planBlocks).
type Writer struct {
	w   io.Writer
	c   *Compressor
	buf bytes.Buffer
}

// NewWriter returns a Writer at the given level, writing completed
// frames to w on Close.
func NewWriter(w io.Writer, level int) *Writer {
	return &Writer{w: w, c: NewCompressor(level)}
}

// WithChecksum enables the frame content checksum, mirroring
// Compressor.WithChecksum.
func (zw *Writer) WithChecksum(on bool) *Writer {
	zw.c.WithChecksum(on)
	return zw
}

func (zw *Writer) Write(p []byte) (int, error) {
	return zw.buf.Write(p)
}

// Close compresses the buffered input into one frame and writes it
// out. It does not close the underlying writer.
func (zw *Writer) Close() error {
	out, err := zw.c.Compress(nil, zw.buf.Bytes())
	if err != nil {
		return err
	}
	_, err = zw.w.Write(out)
	return err
}

// Reader decompresses a single zstd frame read from r. Like Writer, it
// reads the whole input up front: frameformat has no facility for
// decoding a frame incrementally one block at a time from a partial
// read, so the first Read call drains r entirely before returning any
// decompressed bytes.
type Reader struct {
	d   *Decompressor
	r   io.Reader
	out []byte
	pos int
	err error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{d: NewDecompressor(), r: r}
}

func (zr *Reader) fill() {
	src, err := io.ReadAll(zr.r)
	if err != nil {
		zr.err = err
		return
	}
	zr.out, zr.err = zr.d.Decompress(nil, src)
}

func (zr *Reader) Read(p []byte) (int, error) {
	if zr.out == nil && zr.err == nil {
		zr.fill()
	}
	if zr.err != nil {
		return 0, fmt.Errorf("zstd1: %w", zr.err)
	}
	if zr.pos >= len(zr.out) {
		return 0, io.EOF
	}
	n := copy(p, zr.out[zr.pos:])
	zr.pos += n
	return n, nil
}
