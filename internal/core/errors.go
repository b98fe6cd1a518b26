// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers wrap them with %w and match with errors.Is.
var (
	// Frame truncation: captured bytes do not cover a structure the decoder needs.
	ErrPacketTooShort = errors.New("flowreader: packet too short")
	ErrTruncatedIPv6  = errors.New("flowreader: truncated IPv6 packet")

	// Frame malformed: inconsistent header fields.
	ErrBadHeaderLength = errors.New("flowreader: bad header length")
	ErrBadVersion      = errors.New("flowreader: bad IP version")

	// Unrecognized ethertype or IP version. Not an error condition for the loop.
	ErrUnsupportedProto = errors.New("flowreader: unsupported protocol")

	// Capture poll timeout expired with no frame. The loop retries.
	ErrReadTimeout = errors.New("flowreader: capture read timeout")

	// Flow record could not be written to the output stream.
	ErrSinkWrite = errors.New("flowreader: sink write failed")

	// Fatal configuration errors, reported before any frame flows.
	ErrConfigInvalid       = errors.New("flowreader: invalid configuration")
	ErrUnsupportedLinkType = errors.New("flowreader: unsupported link type")
	ErrCaptureOpen         = errors.New("flowreader: capture open failed")
	ErrFilter              = errors.New("flowreader: capture filter failed")
)
