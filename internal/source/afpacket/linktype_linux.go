//go:build linux

package afpacket

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"
)

// hardwareType reads the ARPHRD type of dev through SIOCGIFHWADDR.
func hardwareType(dev string) (uint16, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("socket: %w", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(dev)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFHWADDR, ifr); err != nil {
		return 0, fmt.Errorf("SIOCGIFHWADDR %s: %w", dev, err)
	}
	// sa_family of the returned hardware address.
	return ifr.Uint16(), nil
}

// linkTypeFor maps an ARPHRD type to the frame format a SOCK_RAW packet
// socket delivers on that interface. ok is false for types with no mapping.
func linkTypeFor(hwType uint16) (lt layers.LinkType, ok bool) {
	switch hwType {
	case unix.ARPHRD_ETHER, unix.ARPHRD_LOOPBACK:
		// Loopback frames carry a zeroed Ethernet header.
		return layers.LinkTypeEthernet, true
	case unix.ARPHRD_NONE:
		// tun, wireguard: bare IP.
		return layers.LinkTypeRaw, true
	case unix.ARPHRD_PPP:
		return layers.LinkTypePPP, true
	case unix.ARPHRD_IEEE80211_RADIOTAP:
		return layers.LinkTypeIEEE80211Radio, true
	case unix.ARPHRD_IEEE80211:
		return layers.LinkTypeIEEE802_11, true
	}
	return 0, false
}
