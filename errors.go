package zstd1

import "github.com/jmoiron/zstd1/internal/frameformat"

// Code is this package's error classification, spec §7's error-kind
// table. It is a type alias for frameformat.Code so callers can match
// errors returned from either package against the same sentinels
// without an extra translation step.
type Code = frameformat.Code

// Error kind sentinels, spec §7.
const (
	ErrGeneric                      = frameformat.GENERIC
	ErrPrefixUnknown                = frameformat.PrefixUnknown
	ErrVersionUnsupported           = frameformat.VersionUnsupported
	ErrFrameParameterUnsupported    = frameformat.FrameParameterUnsupported
	ErrFrameParameterWindowTooLarge = frameformat.FrameParameterWindowTooLarge
	ErrCorruptionDetected           = frameformat.CorruptionDetected
	ErrChecksumWrong                = frameformat.ChecksumWrong
	ErrDstSizeTooSmall              = frameformat.DstSizeTooSmall
	ErrSrcSizeWrong                 = frameformat.SrcSizeWrong
)

// IsError mirrors spec §6's isError(code) predicate.
func IsError(err error) bool { return frameformat.IsError(err) }

// GetErrorName mirrors spec §6's getErrorName(code).
func GetErrorName(err error) string { return frameformat.GetErrorName(err) }
