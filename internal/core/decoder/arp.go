package decoder

import (
	"fmt"

	"firestige.xyz/flowreader/internal/core"
)

const (
	// Ethernet/IPv4 ARP body: htype(2) ptype(2) hlen(1) plen(1) op(2) sha(6) spa(4) tha(6) tpa(4)
	arpBodyLen = 28

	arpOpRequest = 1
	arpOpReply   = 2
)

// decodeARP decodes an Ethernet/IPv4 ARP body.
func decodeARP(v view) (core.ARPHeader, error) {
	if !v.has(0, arpBodyLen) {
		return core.ARPHeader{}, fmt.Errorf("arp: %d bytes captured, need %d: %w",
			v.Len(), arpBodyLen, core.ErrPacketTooShort)
	}

	arp := core.ARPHeader{}

	// Operation (2 bytes at offset 6)
	arp.Operation, _ = v.u16(6)

	// Sender hardware/protocol address (offsets 8, 14)
	arp.SenderHWAddr, _ = v.mac(8)
	arp.SenderProtoAddr, _ = v.addr4(14)

	return arp, nil
}
