// Package errs defines the sentinel errors shared across tagstream packages.
package errs

import "errors"

var (
	// ErrInvalidParameter indicates a configuration value outside its
	// documented range. The previous configuration stays in effect.
	ErrInvalidParameter = errors.New("parameter out of range")

	// ErrOutOfOrderTimestamp indicates an ingested event whose timestamp is
	// smaller than the last accepted one. The event is dropped.
	ErrOutOfOrderTimestamp = errors.New("timestamp out of order")

	// ErrUnsupportedFormat indicates a file format that cannot serve the
	// requested operation, e.g. replaying an ASCII file or reading a
	// headerless file without an explicit format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	ErrInvalidHeaderSize      = errors.New("invalid header size")
	ErrInvalidMagicNumber     = errors.New("invalid header magic number")
	ErrInvalidHeaderFlags     = errors.New("invalid header flags")
	ErrHeaderChecksumMismatch = errors.New("header checksum mismatch")
	ErrTruncatedRecord        = errors.New("truncated record")
)
