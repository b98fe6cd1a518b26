package decoder

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/log"
)

const testEpoch = 1700000000

var (
	macA = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	macB = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}

	ipA = net.IP{10, 0, 0, 1}
	ipB = net.IP{10, 0, 0, 2}

	ip6A = net.ParseIP("fe80::1")
	ip6B = net.ParseIP("fe80::2")
)

// memCache is a map-backed AddressCache.
type memCache map[string]string

func (c memCache) Put(ip, mac string) { c[ip] = mac }
func (c memCache) Get(ip string) (string, bool) {
	mac, ok := c[ip]
	return mac, ok
}

type dnsCall struct {
	payload []byte
	length  int
	ts      int64
}

// recorder captures sink and hook traffic in call order.
type recorder struct {
	flows   []core.Flow
	dns     []dnsCall
	events  []string
	sinkErr error
}

func (r *recorder) Emit(f core.Flow) error {
	if r.sinkErr != nil {
		return r.sinkErr
	}
	r.flows = append(r.flows, f)
	r.events = append(r.events, "flow")
	return nil
}

func (r *recorder) Handle(payload []byte, length int, ts int64) {
	r.dns = append(r.dns, dnsCall{payload: append([]byte(nil), payload...), length: length, ts: ts})
	r.events = append(r.events, "dns")
}

type harness struct {
	d     *Dissector
	cache memCache
	rec   *recorder
	logs  *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	h := &harness{cache: memCache{}, rec: &recorder{}, logs: hook}
	h.d = New(Config{Cache: h.cache, Sink: h.rec, Hook: h.rec, Logger: log.New(logger)})
	return h
}

func (h *harness) warnings() int {
	n := 0
	for _, e := range h.logs.AllEntries() {
		if e.Level == logrus.WarnLevel {
			n++
		}
	}
	return n
}

// frame wraps bytes as a fully captured packet.
func frame(b []byte) core.RawPacket {
	return core.RawPacket{
		Data:       b,
		Timestamp:  time.Unix(testEpoch, 0),
		CaptureLen: uint32(len(b)),
		OrigLen:    uint32(len(b)),
	}
}

// truncated keeps the first n bytes, as a short snaplen would.
func truncated(b []byte, n int) core.RawPacket {
	p := frame(b[:n])
	p.OrigLen = uint32(len(b))
	return p
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return append([]byte(nil), buf.Bytes()...)
}

func ethernet(src, dst net.HardwareAddr, typ layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: typ}
}

func ipv4(proto layers.IPProtocol, src, dst net.IP) *layers.IPv4 {
	return &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: proto, SrcIP: src, DstIP: dst}
}

func ipv6(next layers.IPProtocol, src, dst net.IP) *layers.IPv6 {
	return &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: next, SrcIP: src, DstIP: dst}
}

func tcpFrame(t *testing.T, sport, dport layers.TCPPort, syn, ack bool) []byte {
	t.Helper()
	ip := ipv4(layers.IPProtocolTCP, ipB, ipA)
	tcp := &layers.TCP{SrcPort: sport, DstPort: dport, SYN: syn, ACK: ack, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(macB, macA, layers.EthernetTypeIPv4), ip, tcp)
}

func udpFrame(t *testing.T, sport, dport layers.UDPPort, payload []byte) []byte {
	t.Helper()
	ip := ipv4(layers.IPProtocolUDP, ipB, ipA)
	udp := &layers.UDP{SrcPort: sport, DstPort: dport}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(macB, macA, layers.EthernetTypeIPv4), ip, udp, gopacket.Payload(payload))
}

func udp6Frame(t *testing.T, sport, dport layers.UDPPort, payload []byte) []byte {
	t.Helper()
	ip := ipv6(layers.IPProtocolUDP, ip6B, ip6A)
	udp := &layers.UDP{SrcPort: sport, DstPort: dport}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, ethernet(macB, macA, layers.EthernetTypeIPv6), ip, udp, gopacket.Payload(payload))
}

func arpFrame(t *testing.T, op uint16, senderMAC net.HardwareAddr, senderIP, targetIP net.IP) []byte {
	t.Helper()
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   senderMAC,
		SourceProtAddress: senderIP,
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    targetIP,
	}
	return serialize(t, ethernet(senderMAC, net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, layers.EthernetTypeARP), arp)
}

// neighborAdvert builds an ICMPv6 type 136 message for target. The checksum
// is left zero; the dissector never verifies it.
func neighborAdvert(target net.IP) []byte {
	b := make([]byte, icmp6NeighborAdvertLen)
	b[0] = icmp6TypeNeighborAdvert
	b[4] = 0x60 // solicited, override
	copy(b[8:], target.To16())
	return b
}

func ndpFrame(t *testing.T, src net.HardwareAddr, body []byte) []byte {
	t.Helper()
	return serialize(t,
		ethernet(src, macA, layers.EthernetTypeIPv6),
		ipv6(layers.IPProtocolICMPv6, ip6B, ip6A),
		gopacket.Payload(body))
}

func dnsQuery(t *testing.T, name string) []byte {
	t.Helper()
	return serialize(t, &layers.DNS{
		ID: 0x1234,
		RD: true,
		Questions: []layers.DNSQuestion{
			{Name: []byte(name), Type: layers.DNSTypeA, Class: layers.DNSClassIN},
		},
	})
}

var errSinkClosed = errors.New("stdout closed")
