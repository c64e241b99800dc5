package zstd1

import "sync"

// compressorPool and decompressorPool recycle per-goroutine codec
// contexts across calls (spec §5 "Context pooling"), the same idea as
// this module's teacher's Table.encBuf (a scratch buffer held on the
// reusable object itself), generalized here to a sync.Pool since
// callers share one process-wide pool of contexts rather than one
// buffer per long-lived object. Only the context structs are
// recycled: each Compress call still allocates its own DP table and
// match-finder tree.
var compressorPool = sync.Pool{
	New: func() any { return NewCompressor(3) },
}

var decompressorPool = sync.Pool{
	New: func() any { return NewDecompressor() },
}

// Compress is a convenience wrapper over a pooled Compressor for
// one-shot callers who don't need to hold a context across calls,
// spec §6's top-level `compress(dst, src, level)`.
func Compress(dst, src []byte, level int) ([]byte, error) {
	c := compressorPool.Get().(*Compressor)
	defer compressorPool.Put(c)
	c.level = level
	c.params = paramsForLevel(level)
	return c.Compress(dst, src)
}

// Decompress is the pooled convenience wrapper over Decompressor,
// spec §6's top-level `decompress(dst, src)`.
func Decompress(dst, src []byte) ([]byte, error) {
	d := decompressorPool.Get().(*Decompressor)
	defer decompressorPool.Put(d)
	return d.Decompress(dst, src)
}
