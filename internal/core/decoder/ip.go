package decoder

import (
	"fmt"

	"firestige.xyz/flowreader/internal/core"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// decodeIP decodes IP header (IPv4 or IPv6), dispatching on the version nibble.
// Returns IPHeader, the view positioned at the upper-layer payload, and the
// number of bytes the packet declares but the capture did not retain.
// A non-zero shortfall is not an error: dissection continues on what was captured.
func decodeIP(v view) (core.IPHeader, view, int, error) {
	b0, err := v.u8(0)
	if err != nil {
		return core.IPHeader{}, view{}, 0, fmt.Errorf("ip: empty payload: %w", err)
	}

	// Check IP version (first 4 bits)
	switch b0 >> 4 {
	case 4:
		return decodeIPv4(v)
	case 6:
		return decodeIPv6(v)
	default:
		return core.IPHeader{}, view{}, 0, fmt.Errorf("ip: version %d: %w", b0>>4, core.ErrUnsupportedProto)
	}
}

// decodeIPv4 decodes IPv4 header.
func decodeIPv4(v view) (core.IPHeader, view, int, error) {
	if !v.has(0, ipv4HeaderMinLen) {
		return core.IPHeader{}, view{}, 0, fmt.Errorf("ipv4: %d bytes captured: %w", v.Len(), core.ErrPacketTooShort)
	}

	ip := core.IPHeader{
		Version: 4,
	}

	// Total Length (2 bytes at offset 2). Only a hint: the effective length
	// is clamped to what was captured.
	ip.TotalLen, _ = v.u16(2)
	length := int(ip.TotalLen)
	missing := 0
	if v.Len() < length {
		missing = length - v.Len()
		length = v.Len()
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte, in 32-bit words
	b0, _ := v.u8(0)
	ip.HeaderLen = int(b0&0x0F) * 4
	if ip.HeaderLen < ipv4HeaderMinLen || ip.HeaderLen > length {
		return ip, view{}, missing, fmt.Errorf("ipv4: header length %d: %w", ip.HeaderLen, core.ErrBadHeaderLength)
	}
	ip.PayloadLen = length - ip.HeaderLen

	// Protocol (1 byte at offset 9)
	ip.Protocol, _ = v.u8(9)

	// Source/Destination IP (4 bytes each at offsets 12, 16)
	ip.SrcIP, _ = v.addr4(12)
	ip.DstIP, _ = v.addr4(16)

	return ip, v.from(ip.HeaderLen), missing, nil
}

// decodeIPv6 decodes the fixed IPv6 header.
func decodeIPv6(v view) (core.IPHeader, view, int, error) {
	if !v.has(0, ipv6HeaderLen) {
		return core.IPHeader{}, view{}, 0, fmt.Errorf("ipv6: %d bytes captured: %w", v.Len(), core.ErrTruncatedIPv6)
	}

	b0, _ := v.u8(0)
	if b0>>4 != 6 {
		return core.IPHeader{}, view{}, 0, fmt.Errorf("ipv6: version %d: %w", b0>>4, core.ErrBadVersion)
	}

	ip := core.IPHeader{
		Version:   6,
		HeaderLen: ipv6HeaderLen,
	}

	// Payload Length (2 bytes at offset 4)
	payloadLen, _ := v.u16(4)
	ip.TotalLen = uint16(ipv6HeaderLen) + payloadLen
	ip.PayloadLen = int(payloadLen)
	missing := 0
	if want := ipv6HeaderLen + int(payloadLen); v.Len() < want {
		missing = want - v.Len()
	}

	// Next Header (1 byte at offset 6). Extension headers are not walked,
	// so an extension header type is reported as the protocol.
	ip.Protocol, _ = v.u8(6)

	// Source/Destination IP (16 bytes each at offsets 8, 24)
	ip.SrcIP, _ = v.addr16(8)
	ip.DstIP, _ = v.addr16(24)

	return ip, v.from(ipv6HeaderLen), missing, nil
}
