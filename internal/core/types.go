// Package core defines core types with zero external dependencies.
package core

import (
	"net"
	"net/netip"
)

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16 // 0x0800=IPv4, 0x86DD=IPv6, 0x0806=ARP
}

// SrcString renders the source MAC in lower-case colon form.
func (h EthernetHeader) SrcString() string {
	return net.HardwareAddr(h.SrcMAC[:]).String()
}

// ARPHeader carries the fields of an Ethernet/IPv4 ARP body that the cache needs.
type ARPHeader struct {
	Operation       uint16 // 1=request, 2=reply
	SenderHWAddr    [6]byte
	SenderProtoAddr netip.Addr
}

// IPHeader represents L3 IP header (IPv4/IPv6).
type IPHeader struct {
	Version   uint8
	SrcIP     netip.Addr
	DstIP     netip.Addr
	Protocol  uint8  // IPv4 protocol or IPv6 next header (extension headers are not walked)
	HeaderLen int    // 20-60 for IPv4, always 40 for IPv6
	TotalLen  uint16 // As declared by the packet. Untrusted.
	// PayloadLen is the upper-layer size reported in flow records.
	// IPv4: declared total length clamped to captured bytes, minus header.
	// IPv6: declared payload length.
	PayloadLen int
}

// TransportHeader represents L4 transport layer header (TCP/UDP).
type TransportHeader struct {
	SrcPort   uint16
	DstPort   uint16
	Protocol  uint8
	HeaderLen int // 8 for UDP, data offset * 4 for TCP
	// TCP-specific fields (only populated for TCP)
	TCPFlags uint8
}

// ICMPv6Header holds the message type. Only neighbor advertisements are acted on.
type ICMPv6Header struct {
	Type uint8
}

// NeighborAdvertisement is the target address of an ICMPv6 type 136 message.
type NeighborAdvertisement struct {
	Target netip.Addr
}
