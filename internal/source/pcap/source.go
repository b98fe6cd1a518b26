// Package pcap reads frames through libpcap, from a live device or a
// replay file.
package pcap

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/flowreader/internal/core"
)

// LiveOptions configures a live capture.
type LiveOptions struct {
	Device      string
	SnapLen     int
	Promiscuous bool
	Timeout     time.Duration // Poll timeout; the read returns core.ErrReadTimeout when it expires
}

// Source wraps a libpcap handle.
type Source struct {
	handle *pcap.Handle
	name   string
}

// OpenLive creates, configures and activates a live handle.
func OpenLive(opts LiveOptions) (*Source, error) {
	inactive, err := pcap.NewInactiveHandle(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: pcap create %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, fmt.Errorf("%w: set snaplen %d: %v", core.ErrCaptureOpen, opts.SnapLen, err)
	}
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, fmt.Errorf("%w: set promisc: %v", core.ErrCaptureOpen, err)
	}
	if err := inactive.SetTimeout(opts.Timeout); err != nil {
		return nil, fmt.Errorf("%w: set timeout: %v", core.ErrCaptureOpen, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("%w: pcap activate %s: %v", core.ErrCaptureOpen, opts.Device, err)
	}
	return &Source{handle: handle, name: opts.Device}, nil
}

// OpenOffline opens a pcap or pcapng replay file.
func OpenOffline(path string) (*Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pcap file %q: %v", core.ErrCaptureOpen, path, err)
	}
	return &Source{handle: handle, name: path}, nil
}

// Next returns the next frame. It returns io.EOF at the end of a replay file
// and core.ErrReadTimeout when a live poll timeout expires.
func (s *Source) Next() (core.RawPacket, error) {
	data, ci, err := s.handle.ReadPacketData()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return core.RawPacket{}, io.EOF
	case errors.Is(err, pcap.NextErrorTimeoutExpired):
		return core.RawPacket{}, core.ErrReadTimeout
	default:
		return core.RawPacket{}, fmt.Errorf("read packet from %s: %w", s.name, err)
	}

	return core.RawPacket{
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}, nil
}

// LinkType returns the handle's data link type.
func (s *Source) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

// SetFilter compiles expr and attaches it to the handle.
func (s *Source) SetFilter(expr string) error {
	if err := s.handle.SetBPFFilter(expr); err != nil {
		return fmt.Errorf("%w: %q: %v", core.ErrFilter, expr, err)
	}
	return nil
}

// Stats returns the handle's counters. Replay files have none.
func (s *Source) Stats() (core.CaptureStats, error) {
	st, err := s.handle.Stats()
	if err != nil {
		return core.CaptureStats{}, err
	}
	return core.CaptureStats{
		Received:  uint64(st.PacketsReceived),
		Dropped:   uint64(st.PacketsDropped),
		IfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

// Name is the device name or file path.
func (s *Source) Name() string {
	return s.name
}

// Close releases the handle.
func (s *Source) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
