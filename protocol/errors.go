package protocol

import "errors"

var (
	// ErrMalformedHeader means the packet could not be attributed to a source and is discarded.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrTruncatedEntry means entry boundaries cannot be recovered and the packet is discarded.
	ErrTruncatedEntry = errors.New("truncated entry")
	// ErrInvalidEntry marks a single entry that is dropped from an otherwise valid packet.
	ErrInvalidEntry = errors.New("invalid entry")

	ErrInvalidRouterId = errors.New("invalid router id")
	ErrInvalidMetric   = errors.New("invalid metric")
)
