// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one captured link-layer frame plus its capture metadata.
type RawPacket struct {
	Data       []byte    // Raw frame data
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Bytes actually retained
	OrigLen    uint32    // Bytes on the wire
}

// Flow is the per-frame addressing/protocol/size descriptor emitted as one record.
// It only exists for frames whose IP layer was parsed.
type Flow struct {
	MACFrom      string // Empty when not resolved
	MACTo        string // Empty when not resolved
	IPFrom       string
	IPTo         string
	Protocol     uint8
	TCPInitiated bool
	PortFrom     uint16
	PortTo       uint16
	PayloadSize  int
	Timestamp    int64 // Capture time, seconds
}

// CaptureStats are the capture handle's counters as reported at shutdown.
type CaptureStats struct {
	Received  uint64
	Dropped   uint64
	IfDropped uint64
}
