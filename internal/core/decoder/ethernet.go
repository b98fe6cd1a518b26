package decoder

import "firestige.xyz/flowreader/internal/core"

const (
	// Ethernet constants
	ethernetHeaderLen = 14

	// EtherType values
	etherTypeIPv4 = 0x0800
	etherTypeARP  = 0x0806
	etherTypeIPv6 = 0x86DD
)

// decodeEthernet decodes the fixed Ethernet header.
// Returns EthernetHeader and the view positioned at the L3 payload.
func decodeEthernet(v view) (core.EthernetHeader, view, error) {
	if !v.has(0, ethernetHeaderLen) {
		return core.EthernetHeader{}, view{}, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}

	// Destination MAC (6 bytes)
	eth.DstMAC, _ = v.mac(0)

	// Source MAC (6 bytes)
	eth.SrcMAC, _ = v.mac(6)

	// EtherType (2 bytes)
	eth.EtherType, _ = v.u16(12)

	return eth, v.from(ethernetHeaderLen), nil
}
