package decoder

import (
	"fmt"

	"firestige.xyz/flowreader/internal/core"
)

const (
	icmp6HeaderLen = 4 // type(1) code(1) checksum(2)
	// Neighbor advertisement: ICMPv6 header, flags(4), target address(16)
	icmp6NeighborAdvertLen = icmp6HeaderLen + 4 + 16

	icmp6TypeNeighborAdvert = 136
)

// decodeICMPv6 needs the type and code bytes captured.
func decodeICMPv6(v view) (core.ICMPv6Header, error) {
	if !v.has(0, 2) {
		return core.ICMPv6Header{}, fmt.Errorf("icmp6: %d bytes captured: %w", v.Len(), core.ErrPacketTooShort)
	}
	typ, _ := v.u8(0)
	return core.ICMPv6Header{Type: typ}, nil
}

// decodeNeighborAdvert decodes an ICMPv6 neighbor advertisement, starting at
// the ICMPv6 header.
func decodeNeighborAdvert(v view) (core.NeighborAdvertisement, error) {
	if !v.has(0, icmp6NeighborAdvertLen) {
		return core.NeighborAdvertisement{}, fmt.Errorf("icmp6 neighbor advert: %d bytes captured: %w",
			v.Len(), core.ErrPacketTooShort)
	}
	target, _ := v.addr16(icmp6HeaderLen + 4)
	return core.NeighborAdvertisement{Target: target}, nil
}
