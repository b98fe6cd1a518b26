//go:build linux

package afpacket

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/utils"
)

// Source reads frames from a TPACKET_V3 mmap ring.
type Source struct {
	handle   *afpacket.TPacket
	device   string
	layout   ringLayout
	snapLen  int
	linkType layers.LinkType
}

// Open binds a raw AF_PACKET socket to opts.Device.
func Open(opts Options) (*Source, error) {
	layout, err := computeLayout(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureOpen, err)
	}

	hw, err := hardwareType(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCaptureOpen, err)
	}
	linkType, ok := linkTypeFor(hw)
	if !ok {
		return nil, fmt.Errorf("%w: %s has hardware type %d", core.ErrUnsupportedLinkType, opts.Device, hw)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Device),
		afpacket.OptFrameSize(layout.FrameSize),
		afpacket.OptBlockSize(layout.BlockSize),
		afpacket.OptNumBlocks(layout.NumBlocks),
		afpacket.OptPollTimeout(opts.Timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: afpacket %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}

	return &Source{
		handle:   tp,
		device:   opts.Device,
		layout:   layout,
		snapLen:  opts.SnapLen,
		linkType: linkType,
	}, nil
}

// Next returns the next frame, or core.ErrReadTimeout when the poll expires.
// The returned data is copied out of the ring.
func (s *Source) Next() (core.RawPacket, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) {
			return core.RawPacket{}, core.ErrReadTimeout
		}
		return core.RawPacket{}, fmt.Errorf("read packet from %s: %w", s.device, err)
	}
	return core.RawPacket{
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}, nil
}

// LinkType is derived from the interface hardware type at open time.
func (s *Source) LinkType() layers.LinkType {
	return s.linkType
}

// SetFilter compiles expr with libpcap and installs it as a socket filter.
func (s *Source) SetFilter(expr string) error {
	insns, err := utils.CompileBPF(s.linkType, expr, s.snapLen)
	if err != nil {
		return err
	}
	if err := s.handle.SetBPF(insns); err != nil {
		return fmt.Errorf("%w: attach %q: %v", core.ErrFilter, expr, err)
	}
	return nil
}

// Stats reports the socket counters. The kernel resets them on every read.
func (s *Source) Stats() (core.CaptureStats, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return core.CaptureStats{}, err
	}
	return core.CaptureStats{
		Received: uint64(v3.Packets()),
		Dropped:  uint64(v3.Drops()),
	}, nil
}

// Name returns the bound interface.
func (s *Source) Name() string {
	return s.device
}

// Close unmaps the ring and closes the socket.
func (s *Source) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
