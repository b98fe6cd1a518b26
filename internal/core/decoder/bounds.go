package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/flowreader/internal/core"
)

// view is a read-only window over captured bytes.
//
// The window end is fixed once per frame from capture metadata and is the
// only authority on what may be read. Length fields found inside the packet
// never widen it.
type view struct {
	b []byte
}

// newView bounds the frame at min(CaptureLen, len(Data)). A capture layer may
// report a captured length larger than the buffer it actually handed over.
func newView(raw core.RawPacket) view {
	n := len(raw.Data)
	if int64(raw.CaptureLen) < int64(n) {
		n = int(raw.CaptureLen)
	}
	return view{b: raw.Data[:n]}
}

// Len returns the number of captured bytes in the view.
func (v view) Len() int { return len(v.b) }

// has reports whether [off, off+n) lies within the captured bytes.
func (v view) has(off, n int) bool {
	if off < 0 || n < 0 {
		return false
	}
	return off <= len(v.b) && n <= len(v.b)-off
}

// from returns the view starting at off. Out-of-range offsets yield an empty view.
func (v view) from(off int) view {
	if !v.has(off, 0) {
		return view{}
	}
	return view{b: v.b[off:]}
}

// window returns up to n bytes starting at off, cut at the captured boundary.
// It returns nil when no byte at off was captured.
func (v view) window(off, n int) []byte {
	if !v.has(off, 1) || n <= 0 {
		return nil
	}
	if rest := len(v.b) - off; n > rest {
		n = rest
	}
	return v.b[off : off+n]
}

func (v view) u8(off int) (uint8, error) {
	if !v.has(off, 1) {
		return 0, core.ErrPacketTooShort
	}
	return v.b[off], nil
}

func (v view) u16(off int) (uint16, error) {
	if !v.has(off, 2) {
		return 0, core.ErrPacketTooShort
	}
	return binary.BigEndian.Uint16(v.b[off : off+2]), nil
}

func (v view) mac(off int) ([6]byte, error) {
	var m [6]byte
	if !v.has(off, 6) {
		return m, core.ErrPacketTooShort
	}
	copy(m[:], v.b[off:off+6])
	return m, nil
}

func (v view) addr4(off int) (netip.Addr, error) {
	if !v.has(off, 4) {
		return netip.Addr{}, core.ErrPacketTooShort
	}
	return netip.AddrFrom4([4]byte(v.b[off : off+4])), nil
}

func (v view) addr16(off int) (netip.Addr, error) {
	if !v.has(off, 16) {
		return netip.Addr{}, core.ErrPacketTooShort
	}
	return netip.AddrFrom16([16]byte(v.b[off : off+16])), nil
}
