package decoder

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/flowreader/internal/core"
)

func TestDissectShortFrames(t *testing.T) {
	full := tcpFrame(t, 4000, 80, true, false)
	for n := 0; n < ethernetHeaderLen; n++ {
		h := newHarness(t)
		res := h.d.Dissect(truncated(full, n))

		assert.Equal(t, OutcomeDropped, res.Outcome, "caplen %d", n)
		assert.ErrorIs(t, res.Err, core.ErrPacketTooShort)
		assert.Empty(t, h.rec.flows)
		assert.Equal(t, 1, h.warnings(), "caplen %d", n)
	}
}

func TestDissectCaptureLenBeyondBuffer(t *testing.T) {
	h := newHarness(t)
	full := tcpFrame(t, 4000, 80, true, false)

	// Metadata claims more than the buffer holds; the buffer wins.
	p := frame(full[:10])
	p.CaptureLen = uint32(len(full))
	res := h.d.Dissect(p)

	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.Empty(t, h.rec.flows)
}

func TestDissectTCPInitiated(t *testing.T) {
	tests := []struct {
		name      string
		syn, ack  bool
		initiated bool
	}{
		{"syn", true, false, true},
		{"syn ack", true, true, false},
		{"ack", false, true, false},
		{"none", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.d.Dissect(frame(tcpFrame(t, 4000, 80, tt.syn, tt.ack)))

			require.Equal(t, OutcomeFlow, res.Outcome)
			require.Len(t, h.rec.flows, 1)
			f := h.rec.flows[0]
			assert.Equal(t, tt.initiated, f.TCPInitiated)
			assert.Equal(t, uint8(6), f.Protocol)
			assert.Equal(t, uint16(4000), f.PortFrom)
			assert.Equal(t, uint16(80), f.PortTo)
			assert.Equal(t, 20, f.PayloadSize)
			assert.Equal(t, "10.0.0.2", f.IPFrom)
			assert.Equal(t, "10.0.0.1", f.IPTo)
			assert.Equal(t, int64(testEpoch), f.Timestamp)
		})
	}
}

func TestDissectARPReplyEnrichesFlows(t *testing.T) {
	h := newHarness(t)

	res := h.d.Dissect(frame(arpFrame(t, layers.ARPReply, macA, ipA, ipB)))
	assert.Equal(t, OutcomeARP, res.Outcome)
	assert.Equal(t, LearnedARP, res.Learned)
	assert.Empty(t, h.rec.flows, "ARP never produces a flow")

	res = h.d.Dissect(frame(tcpFrame(t, 4000, 80, true, false)))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", res.Flow.MACTo)
	assert.Empty(t, res.Flow.MACFrom)
}

func TestDissectARPRequestIgnored(t *testing.T) {
	h := newHarness(t)

	res := h.d.Dissect(frame(arpFrame(t, layers.ARPRequest, macA, ipA, ipB)))
	assert.Equal(t, OutcomeARP, res.Outcome)
	assert.Empty(t, res.Learned)
	assert.Empty(t, h.cache)
	assert.Empty(t, h.rec.flows)
}

func TestDissectARPReplyOverwrites(t *testing.T) {
	h := newHarness(t)
	h.d.Dissect(frame(arpFrame(t, layers.ARPReply, macB, ipA, ipB)))
	h.d.Dissect(frame(arpFrame(t, layers.ARPReply, macA, ipA, ipB)))

	assert.Equal(t, "aa:bb:cc:dd:ee:ff", h.cache["10.0.0.1"])
}

func TestDissectARPTruncated(t *testing.T) {
	h := newHarness(t)
	full := arpFrame(t, layers.ARPReply, macA, ipA, ipB)

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+arpBodyLen-1))
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrPacketTooShort)
	assert.Empty(t, h.cache)
	assert.Equal(t, 1, h.warnings())
}

func TestDissectUnknownEtherType(t *testing.T) {
	h := newHarness(t)
	b := serialize(t, ethernet(macB, macA, layers.EthernetType(0x88cc)), gopacket.Payload(make([]byte, 46)))

	res := h.d.Dissect(frame(b))
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrUnsupportedProto)
	assert.Empty(t, h.rec.flows)
	assert.Zero(t, h.warnings())
}

func TestDissectDNSForwarded(t *testing.T) {
	h := newHarness(t)
	query := dnsQuery(t, "example.com")

	res := h.d.Dissect(frame(udpFrame(t, 40000, 53, query)))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.True(t, res.DNSForwarded)

	require.Len(t, h.rec.dns, 1)
	call := h.rec.dns[0]
	assert.Equal(t, query, call.payload)
	assert.Equal(t, len(query), call.length)
	assert.Equal(t, int64(testEpoch), call.ts)
	assert.Equal(t, []string{"flow", "dns"}, h.rec.events)

	assert.Equal(t, udpHeaderLen+len(query), h.rec.flows[0].PayloadSize)
}

func TestDissectDNSFromSourcePort(t *testing.T) {
	h := newHarness(t)
	res := h.d.Dissect(frame(udpFrame(t, 53, 40000, dnsQuery(t, "example.org"))))
	assert.True(t, res.DNSForwarded)
	assert.Len(t, h.rec.dns, 1)
}

func TestDissectDNSPayloadCutAtCapture(t *testing.T) {
	h := newHarness(t)
	query := dnsQuery(t, "example.com")
	full := udpFrame(t, 40000, 53, query)
	keep := ethernetHeaderLen + 20 + udpHeaderLen + 4

	res := h.d.Dissect(truncated(full, keep))
	require.Equal(t, OutcomeFlow, res.Outcome)
	require.Len(t, h.rec.dns, 1)
	assert.Equal(t, query[:4], h.rec.dns[0].payload)
	assert.Equal(t, 4, h.rec.dns[0].length, "IPv4 length is clamped to the capture")
}

func TestDissectDNSOverIPv6DeclaredLength(t *testing.T) {
	h := newHarness(t)
	query := dnsQuery(t, "example.com")
	full := udp6Frame(t, 40000, 53, query)
	keep := ethernetHeaderLen + ipv6HeaderLen + udpHeaderLen + 4

	res := h.d.Dissect(truncated(full, keep))
	require.Equal(t, OutcomeFlow, res.Outcome)
	require.Len(t, h.rec.dns, 1)
	assert.Equal(t, query[:4], h.rec.dns[0].payload)
	assert.Equal(t, len(query), h.rec.dns[0].length, "IPv6 length is what the header declares")
}

func TestDissectDNSPayloadNotCaptured(t *testing.T) {
	h := newHarness(t)
	full := udpFrame(t, 40000, 53, dnsQuery(t, "example.com"))

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+20+udpHeaderLen))
	assert.Equal(t, OutcomeFlow, res.Outcome)
	assert.False(t, res.DNSForwarded)
	assert.Empty(t, h.rec.dns)
	assert.Len(t, h.rec.flows, 1)
}

func TestDissectDNSPortWithoutPayload(t *testing.T) {
	h := newHarness(t)

	res := h.d.Dissect(frame(tcpFrame(t, 40000, 53, true, false)))
	assert.Equal(t, OutcomeFlow, res.Outcome)
	assert.False(t, res.DNSForwarded)
	assert.Empty(t, h.rec.dns)
	assert.Zero(t, h.warnings())
}

func TestDissectNonDNSPortNotForwarded(t *testing.T) {
	h := newHarness(t)
	res := h.d.Dissect(frame(udpFrame(t, 40000, 5353, dnsQuery(t, "example.com"))))
	assert.False(t, res.DNSForwarded)
	assert.Empty(t, h.rec.dns)
}

func TestDissectIPv6PayloadTruncatedStillEmits(t *testing.T) {
	h := newHarness(t)
	payload := make([]byte, 64)
	full := udp6Frame(t, 40000, 9999, payload)

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+ipv6HeaderLen+udpHeaderLen))
	require.Equal(t, OutcomeFlow, res.Outcome)
	f := h.rec.flows[0]
	assert.Equal(t, "fe80::2", f.IPFrom)
	assert.Equal(t, "fe80::1", f.IPTo)
	assert.Equal(t, uint16(9999), f.PortTo)
	assert.Equal(t, udpHeaderLen+len(payload), f.PayloadSize)
	assert.Equal(t, 1, h.warnings())
}

func TestDissectIPv6HeaderIncomplete(t *testing.T) {
	h := newHarness(t)
	full := udp6Frame(t, 40000, 9999, make([]byte, 8))

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+ipv6HeaderLen-1))
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrTruncatedIPv6)
	assert.Empty(t, h.rec.flows)
}

func TestDissectIPv4TruncatedContinues(t *testing.T) {
	h := newHarness(t)
	full := udpFrame(t, 40000, 9999, make([]byte, 100))

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+20+udpHeaderLen))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Equal(t, udpHeaderLen, res.Flow.PayloadSize, "payload size uses the captured amount")
	assert.Equal(t, 1, h.warnings())
}

func TestDissectIPv4BadHeaderLength(t *testing.T) {
	tests := []struct {
		name string
		ihl  byte
	}{
		{"below minimum", 4},
		{"beyond total length", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			b := tcpFrame(t, 4000, 80, true, false)
			b[ethernetHeaderLen] = 0x40 | tt.ihl
			// Shrink the declared total so IHL 15 (60 bytes) overshoots it.
			b[ethernetHeaderLen+2], b[ethernetHeaderLen+3] = 0, 40

			res := h.d.Dissect(frame(b))
			assert.Equal(t, OutcomeDropped, res.Outcome)
			assert.ErrorIs(t, res.Err, core.ErrBadHeaderLength)
			assert.Empty(t, h.rec.flows)
		})
	}
}

func TestDissectUnknownIPVersion(t *testing.T) {
	h := newHarness(t)
	b := tcpFrame(t, 4000, 80, true, false)
	b[ethernetHeaderLen] = 0x55

	res := h.d.Dissect(frame(b))
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Empty(t, h.rec.flows)
}

func TestDissectTCPHeaderTruncated(t *testing.T) {
	h := newHarness(t)
	full := tcpFrame(t, 4000, 80, true, false)

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+20+tcpHeaderMinLen-1))
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrPacketTooShort)
	assert.Empty(t, h.rec.flows)
}

func TestDissectUnknownProtocolEmitsZeroPorts(t *testing.T) {
	h := newHarness(t)
	b := serialize(t,
		ethernet(macB, macA, layers.EthernetTypeIPv4),
		ipv4(layers.IPProtocolGRE, ipB, ipA),
		gopacket.Payload(make([]byte, 24)))

	res := h.d.Dissect(frame(b))
	require.Equal(t, OutcomeFlow, res.Outcome)
	f := h.rec.flows[0]
	assert.Equal(t, uint8(47), f.Protocol)
	assert.Zero(t, f.PortFrom)
	assert.Zero(t, f.PortTo)
	assert.Equal(t, 24, f.PayloadSize)
}

func TestDissectICMPv6InIPv4NotProcessed(t *testing.T) {
	h := newHarness(t)
	b := serialize(t,
		ethernet(macB, macA, layers.EthernetTypeIPv4),
		ipv4(layers.IPProtocolICMPv6, ipB, ipA),
		gopacket.Payload(neighborAdvert(ipA.To16())))

	res := h.d.Dissect(frame(b))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Empty(t, res.Learned)
	assert.Empty(t, h.cache)
	assert.Equal(t, 1, h.warnings())
}

func TestDissectNeighborAdvertLearns(t *testing.T) {
	h := newHarness(t)
	target := net.ParseIP("2001:db8::7")

	res := h.d.Dissect(frame(ndpFrame(t, macA, neighborAdvert(target))))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Equal(t, LearnedNDP, res.Learned)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", h.cache["2001:db8::7"])
	assert.Equal(t, uint8(58), res.Flow.Protocol)
}

func TestDissectOtherICMPv6Ignored(t *testing.T) {
	h := newHarness(t)
	body := neighborAdvert(net.ParseIP("2001:db8::7"))
	body[0] = 135 // neighbor solicitation

	res := h.d.Dissect(frame(ndpFrame(t, macA, body)))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Empty(t, res.Learned)
	assert.Empty(t, h.cache)
}

func TestDissectNeighborAdvertTruncatedStillEmits(t *testing.T) {
	h := newHarness(t)
	full := ndpFrame(t, macA, neighborAdvert(net.ParseIP("2001:db8::7")))

	res := h.d.Dissect(truncated(full, ethernetHeaderLen+ipv6HeaderLen+icmp6NeighborAdvertLen-1))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Empty(t, res.Learned)
	assert.Empty(t, h.cache)
	assert.Len(t, h.rec.flows, 1)
}

func TestDissectSinkFailure(t *testing.T) {
	h := newHarness(t)
	h.rec.sinkErr = errSinkClosed

	res := h.d.Dissect(frame(udpFrame(t, 40000, 53, dnsQuery(t, "example.com"))))
	assert.Equal(t, OutcomeDropped, res.Outcome)
	assert.ErrorIs(t, res.Err, errSinkClosed)
	assert.Empty(t, h.rec.dns, "no DNS forwarding after a failed emit")
}

func TestDissectIdempotent(t *testing.T) {
	h := newHarness(t)
	b := frame(udpFrame(t, 40000, 53, dnsQuery(t, "example.com")))

	first := h.d.Dissect(b)
	second := h.d.Dissect(b)
	assert.Equal(t, first, second)
	require.Len(t, h.rec.flows, 2)
	assert.Equal(t, h.rec.flows[0], h.rec.flows[1])
}

func TestDissectTrailingBytesIgnored(t *testing.T) {
	h := newHarness(t)
	b := append(tcpFrame(t, 4000, 80, true, false), make([]byte, 32)...)

	res := h.d.Dissect(frame(b))
	require.Equal(t, OutcomeFlow, res.Outcome)
	assert.Equal(t, 20, res.Flow.PayloadSize)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "flow", OutcomeFlow.String())
	assert.Equal(t, "arp", OutcomeARP.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "dropped", OutcomeDropped.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}

func TestNewDefaultsLogger(t *testing.T) {
	d := New(Config{Cache: memCache{}, Sink: &recorder{}})
	assert.NotNil(t, d.logger)
	res := d.Dissect(frame(tcpFrame(t, 1, 2, false, true)))
	assert.Equal(t, OutcomeFlow, res.Outcome)
}
