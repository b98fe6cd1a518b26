// Package afpacket captures from a Linux AF_PACKET mmap ring.
package afpacket

import "time"

// Options configures an AF_PACKET capture.
type Options struct {
	Device       string
	SnapLen      int
	BufferSizeMB int
	Timeout      time.Duration
}
