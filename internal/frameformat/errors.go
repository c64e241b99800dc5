// Package frameformat implements the zstd frame and block framing of
// spec §6: magic numbers, the frame/window/block headers, the literals
// section, and the sequences section that glues the FSE entropy layer
// to the optimal parser's sequence store.
package frameformat

import "errors"

// Code mirrors §7's error-kind table: a small sentinel satisfying
// error, the way this module's teacher's table.go declares
// ErrBadVersion as a plain errors.New value rather than reaching for a
// third-party error library (no repo in the retrieval pack pulls one
// in for this).
type Code int

const (
	GENERIC Code = iota
	PrefixUnknown
	VersionUnsupported
	FrameParameterUnsupported
	FrameParameterWindowTooLarge
	CorruptionDetected
	ChecksumWrong
	DictionaryCorrupted
	DictionaryWrong
	ParameterOutOfBound
	TableLogTooLarge
	MaxSymbolValueTooLarge
	MaxSymbolValueTooSmall
	StageWrong
	DstSizeTooSmall
	SrcSizeWrong
)

var codeNames = map[Code]string{
	GENERIC:                      "GENERIC",
	PrefixUnknown:                "prefix_unknown",
	VersionUnsupported:           "version_unsupported",
	FrameParameterUnsupported:    "frameParameter_unsupported",
	FrameParameterWindowTooLarge: "frameParameter_windowTooLarge",
	CorruptionDetected:           "corruption_detected",
	ChecksumWrong:                "checksum_wrong",
	DictionaryCorrupted:          "dictionary_corrupted",
	DictionaryWrong:              "dictionary_wrong",
	ParameterOutOfBound:          "parameter_outOfBound",
	TableLogTooLarge:             "tableLog_tooLarge",
	MaxSymbolValueTooLarge:       "maxSymbolValue_tooLarge",
	MaxSymbolValueTooSmall:      "maxSymbolValue_tooSmall",
	StageWrong:                   "stage_wrong",
	DstSizeTooSmall:              "dstSize_tooSmall",
	SrcSizeWrong:                 "srcSize_wrong",
}

func (c Code) Error() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown_error"
}

// Err wraps a Code as an error value, the way callers throughout this
// package raise a classified failure.
func Err(c Code) error { return c }

var (
	ErrPrefixUnknown     = Err(PrefixUnknown)
	ErrVersionUnsupported = Err(VersionUnsupported)
	ErrFrameParameterUnsupported    = Err(FrameParameterUnsupported)
	ErrFrameParameterWindowTooLarge = Err(FrameParameterWindowTooLarge)
	ErrCorruptionDetected = Err(CorruptionDetected)
	ErrChecksumWrong      = Err(ChecksumWrong)
	ErrDstSizeTooSmall    = Err(DstSizeTooSmall)
	ErrSrcSizeWrong       = Err(SrcSizeWrong)
)

// IsError mirrors spec §6's isError(code) predicate.
func IsError(err error) bool {
	if err == nil {
		return false
	}
	var c Code
	return errors.As(err, &c)
}

// GetErrorName mirrors spec §6's getErrorName(code).
func GetErrorName(err error) string {
	var c Code
	if errors.As(err, &c) {
		return c.Error()
	}
	return "No error detected"
}
