//go:build !linux

package afpacket

import (
	"fmt"

	"github.com/google/gopacket/layers"

	"firestige.xyz/flowreader/internal/core"
)

// Source is unavailable off Linux.
type Source struct{}

// Open always fails: AF_PACKET sockets exist only on Linux.
func Open(opts Options) (*Source, error) {
	return nil, fmt.Errorf("%w: afpacket capture requires linux", core.ErrCaptureOpen)
}

// Next always fails.
func (s *Source) Next() (core.RawPacket, error) { return core.RawPacket{}, core.ErrCaptureOpen }

// LinkType reports no link type.
func (s *Source) LinkType() layers.LinkType { return layers.LinkTypeNull }

// SetFilter always fails.
func (s *Source) SetFilter(string) error { return core.ErrFilter }

// Stats always fails.
func (s *Source) Stats() (core.CaptureStats, error) { return core.CaptureStats{}, core.ErrCaptureOpen }

// Name returns the empty string.
func (s *Source) Name() string { return "" }

// Close is a no-op.
func (s *Source) Close() error { return nil }
