// Package source opens the capture handle the dissection loop reads from.
package source

import (
	"fmt"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/source/afpacket"
	"firestige.xyz/flowreader/internal/source/pcap"
)

const (
	TypePcap     = "pcap"
	TypeAFPacket = "afpacket"

	DefaultDevice       = "eth0"
	DefaultSnapLen      = 1514
	DefaultTimeoutMs    = 1000
	DefaultBufferSizeMB = 8
)

// Source yields raw link-layer frames in capture order.
type Source interface {
	// Next returns io.EOF once a replay file is exhausted and
	// core.ErrReadTimeout when a live poll expires with no frame.
	Next() (core.RawPacket, error)
	LinkType() layers.LinkType
	SetFilter(expr string) error
	Stats() (core.CaptureStats, error)
	Name() string
	Close() error
}

// Config selects and tunes the capture source.
type Config struct {
	Type         string `mapstructure:"type" yaml:"type"`
	Interface    string `mapstructure:"interface" yaml:"interface"`
	File         string `mapstructure:"file" yaml:"file"`
	Filter       string `mapstructure:"filter" yaml:"filter"`
	SnapLen      int    `mapstructure:"snaplen" yaml:"snaplen"`
	Promiscuous  bool   `mapstructure:"promiscuous" yaml:"promiscuous"`
	TimeoutMs    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
}

// Validate checks the source options and fills in defaults. A replay file
// and a live interface are mutually exclusive; with neither, the default
// device is used.
func (c *Config) Validate() error {
	if c.Type == "" {
		c.Type = TypePcap
	}
	switch c.Type {
	case TypePcap, TypeAFPacket:
	default:
		return fmt.Errorf("%w: unknown capture type %q", core.ErrConfigInvalid, c.Type)
	}

	if c.File != "" && c.Interface != "" {
		return fmt.Errorf("%w: interface %q and read file %q are mutually exclusive",
			core.ErrConfigInvalid, c.Interface, c.File)
	}
	if c.File != "" && c.Type == TypeAFPacket {
		return fmt.Errorf("%w: afpacket cannot replay a file", core.ErrConfigInvalid)
	}
	if c.File == "" && c.Interface == "" {
		c.Interface = DefaultDevice
	}

	if c.SnapLen == 0 {
		c.SnapLen = DefaultSnapLen
	}
	if c.SnapLen < 0 || c.SnapLen > 262144 {
		return fmt.Errorf("%w: snaplen %d out of range", core.ErrConfigInvalid, c.SnapLen)
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.BufferSizeMB <= 0 {
		c.BufferSizeMB = DefaultBufferSizeMB
	}
	return nil
}

// Open opens the configured source, rejects non-Ethernet link types and
// attaches the filter. Every failure is fatal to the caller.
func Open(cfg Config) (Source, error) {
	var (
		src Source
		err error
	)

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	switch {
	case cfg.File != "":
		src, err = pcap.OpenOffline(cfg.File)
	case cfg.Type == TypeAFPacket:
		src, err = afpacket.Open(afpacket.Options{
			Device:       cfg.Interface,
			SnapLen:      cfg.SnapLen,
			BufferSizeMB: cfg.BufferSizeMB,
			Timeout:      timeout,
		})
	default:
		src, err = pcap.OpenLive(pcap.LiveOptions{
			Device:      cfg.Interface,
			SnapLen:     cfg.SnapLen,
			Promiscuous: cfg.Promiscuous,
			Timeout:     timeout,
		})
	}
	if err != nil {
		return nil, err
	}

	if lt := src.LinkType(); lt != layers.LinkTypeEthernet {
		src.Close()
		return nil, fmt.Errorf("%w: %s is %s, only Ethernet is supported",
			core.ErrUnsupportedLinkType, src.Name(), lt)
	}

	if cfg.Filter != "" {
		if err := src.SetFilter(cfg.Filter); err != nil {
			src.Close()
			return nil, err
		}
	}
	return src, nil
}
