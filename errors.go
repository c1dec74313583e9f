package main

import "github.com/pkg/errors"

var (
	// ErrInvalidParameter is returned when a coding parameter is out of range (m < 1).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrIncompleteStream reports that the bitstream ended before the expected
	// number of symbols was decoded. Whatever was decoded before that point is
	// still returned alongside it.
	ErrIncompleteStream = errors.New("incomplete stream")

	// ErrGeometryMismatch reports frame or plane dimensions that disagree with
	// the declared geometry or cannot be subsampled exactly.
	ErrGeometryMismatch = errors.New("geometry mismatch")

	// ErrUnsupportedFormat reports input the codec cannot parse or an output
	// container it cannot write.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
