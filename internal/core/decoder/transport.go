package decoder

import (
	"fmt"

	"firestige.xyz/flowreader/internal/core"
)

const (
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20

	// Protocol numbers
	protocolTCP    = 6
	protocolUDP    = 17
	protocolICMPv6 = 58

	// TCP flag bits (byte 13)
	tcpFlagSYN = 0x02
	tcpFlagACK = 0x10
)

// decodeTransport decodes transport layer header (TCP/UDP).
// Other protocols return a header with zero ports and no error.
func decodeTransport(v view, protocol uint8) (core.TransportHeader, error) {
	switch protocol {
	case protocolTCP:
		return decodeTCP(v)
	case protocolUDP:
		return decodeUDP(v)
	default:
		return core.TransportHeader{Protocol: protocol}, nil
	}
}

// decodeUDP decodes UDP header.
func decodeUDP(v view) (core.TransportHeader, error) {
	if !v.has(0, udpHeaderLen) {
		return core.TransportHeader{}, fmt.Errorf("udp: %d bytes captured: %w", v.Len(), core.ErrPacketTooShort)
	}

	transport := core.TransportHeader{
		Protocol:  protocolUDP,
		HeaderLen: udpHeaderLen,
	}

	// Source Port (2 bytes at offset 0)
	transport.SrcPort, _ = v.u16(0)

	// Destination Port (2 bytes at offset 2)
	transport.DstPort, _ = v.u16(2)

	// Length and checksum are not needed.
	return transport, nil
}

// decodeTCP decodes the fixed TCP header.
func decodeTCP(v view) (core.TransportHeader, error) {
	if !v.has(0, tcpHeaderMinLen) {
		return core.TransportHeader{}, fmt.Errorf("tcp: %d bytes captured: %w", v.Len(), core.ErrPacketTooShort)
	}

	transport := core.TransportHeader{
		Protocol: protocolTCP,
	}

	transport.SrcPort, _ = v.u16(0)
	transport.DstPort, _ = v.u16(2)

	// Data Offset (upper 4 bits at offset 12), in 32-bit words.
	// A bogus offset falls back to the fixed header size; the options are
	// never read here, so only the payload start depends on it.
	b12, _ := v.u8(12)
	transport.HeaderLen = int(b12>>4) * 4
	if transport.HeaderLen < tcpHeaderMinLen {
		transport.HeaderLen = tcpHeaderMinLen
	}

	// TCP Flags (lower 6 bits of byte 13)
	flags, _ := v.u8(13)
	transport.TCPFlags = flags & 0x3F

	return transport, nil
}

// tcpInitiated reports a connection-establishment attempt: SYN set, ACK clear.
func tcpInitiated(flags uint8) bool {
	return flags&(tcpFlagSYN|tcpFlagACK) == tcpFlagSYN
}
