// Package decoder implements L2-L4 protocol stack decoding.
//
// A Dissector takes one captured frame at a time, decodes
// Ethernet → ARP / IPv4 / IPv6 → TCP / UDP / ICMPv6, feeds the address cache
// from ARP replies and neighbor advertisements, and emits one flow per frame
// that reached the IP layer. Every read is bounded by the captured length;
// a failure affects only the current frame.
package decoder

import (
	"errors"
	"fmt"
	"net"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/log"
)

const dnsPort = 53

// Outcome is the terminal state of one frame.
type Outcome int

const (
	OutcomeFlow    Outcome = iota // Flow emitted
	OutcomeARP                    // ARP handled, no flow
	OutcomeSkipped                // Unknown ethertype or IP version
	OutcomeDropped                // Truncated or malformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFlow:
		return "flow"
	case OutcomeARP:
		return "arp"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Address binding sources reported in Result.Learned.
const (
	LearnedARP = "arp"
	LearnedNDP = "ndp"
)

// AddressCache is the IP→MAC table read and written during dissection.
type AddressCache interface {
	Put(ip, mac string)
	Get(ip string) (string, bool)
}

// FlowSink receives one flow per frame that reached the IP layer.
type FlowSink interface {
	Emit(flow core.Flow) error
}

// DNSHook receives port-53 application payloads with the transport header
// stripped. payload is cut at the captured boundary and may be shorter than
// length, which is the size the packet declares.
type DNSHook interface {
	Handle(payload []byte, length int, timestamp int64)
}

// Config wires a Dissector to its collaborators.
type Config struct {
	Cache  AddressCache // required
	Sink   FlowSink     // required
	Hook   DNSHook      // optional
	Logger log.Logger   // defaults to log.GetLogger()
}

// Result describes what happened to one frame.
type Result struct {
	Outcome      Outcome
	Flow         core.Flow // Valid when Outcome == OutcomeFlow
	Learned      string    // LearnedARP / LearnedNDP when a binding was recorded
	DNSForwarded bool
	Err          error // Drop or skip reason; sink failures wrap core.ErrSinkWrite
}

// Dissector decodes frames. Not safe for concurrent use: the cache is
// accessed without locking.
type Dissector struct {
	cache  AddressCache
	sink   FlowSink
	hook   DNSHook
	logger log.Logger
}

// New creates a Dissector.
func New(cfg Config) *Dissector {
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	return &Dissector{
		cache:  cfg.Cache,
		sink:   cfg.Sink,
		hook:   cfg.Hook,
		logger: cfg.Logger,
	}
}

// Dissect decodes one frame.
func (d *Dissector) Dissect(raw core.RawPacket) Result {
	if raw.CaptureLen != raw.OrigLen && d.logger.IsDebugEnabled() {
		d.logger.Debugf("caplen %d != len %d", raw.CaptureLen, raw.OrigLen)
	}

	v := newView(raw)
	eth, l3, err := decodeEthernet(v)
	if err != nil {
		d.logger.WithField("caplen", v.Len()).Warn("[|ether] truncated ethernet header")
		return dropped(err)
	}

	switch eth.EtherType {
	case etherTypeIPv4, etherTypeIPv6:
		return d.dissectIP(eth, l3, raw.Timestamp.Unix())
	case etherTypeARP:
		return d.dissectARP(l3)
	default:
		if d.logger.IsDebugEnabled() {
			d.logger.Debugf("unknown ether type 0x%04x", eth.EtherType)
		}
		return Result{Outcome: OutcomeSkipped, Err: core.ErrUnsupportedProto}
	}
}

func (d *Dissector) dissectARP(v view) Result {
	arp, err := decodeARP(v)
	if err != nil {
		d.logger.WithError(err).Warn("[|arp] truncated arp")
		return dropped(err)
	}

	res := Result{Outcome: OutcomeARP}
	// Only replies are trusted enough to record; requests are ignored.
	if arp.Operation == arpOpReply {
		d.cache.Put(arp.SenderProtoAddr.String(), net.HardwareAddr(arp.SenderHWAddr[:]).String())
		res.Learned = LearnedARP
	}
	return res
}

func (d *Dissector) dissectIP(eth core.EthernetHeader, l3 view, ts int64) Result {
	ip, l4, missing, err := decodeIP(l3)
	if missing > 0 {
		d.logger.Warnf("truncated IPv%d packet: %d bytes missing", ip.Version, missing)
	}
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedProto) {
			d.logger.Debug("not an IP packet")
			return Result{Outcome: OutcomeSkipped, Err: err}
		}
		d.logger.WithError(err).Warn("dropping IP packet")
		return dropped(err)
	}

	flow := core.Flow{
		IPFrom:      ip.SrcIP.String(),
		IPTo:        ip.DstIP.String(),
		Protocol:    ip.Protocol,
		PayloadSize: ip.PayloadLen,
		Timestamp:   ts,
	}
	res := Result{Outcome: OutcomeFlow}

	var th core.TransportHeader
	hasTransport := false

	switch ip.Protocol {
	case protocolICMPv6:
		if ip.Version != 6 {
			d.logger.Warn("ICMPv6 in IPv4 packet")
			break
		}
		// A truncated ICMPv6 body still yields a flow.
		learned, err := d.handleICMPv6(l4, eth)
		if err != nil {
			d.logger.WithError(err).Warn("TRUNCATED")
		}
		res.Learned = learned

	case protocolTCP, protocolUDP:
		th, err = decodeTransport(l4, ip.Protocol)
		if err != nil {
			d.logger.WithError(err).Warn("TRUNCATED")
			return dropped(err)
		}
		flow.PortFrom = th.SrcPort
		flow.PortTo = th.DstPort
		if ip.Protocol == protocolTCP {
			flow.TCPInitiated = tcpInitiated(th.TCPFlags)
		}
		hasTransport = true

	default:
		if d.logger.IsDebugEnabled() {
			d.logger.Debugf("unknown protocol: %d", ip.Protocol)
		}
	}

	flow.MACFrom, _ = d.cache.Get(flow.IPFrom)
	flow.MACTo, _ = d.cache.Get(flow.IPTo)
	if err := d.sink.Emit(flow); err != nil {
		return Result{Outcome: OutcomeDropped, Err: err}
	}
	res.Flow = flow

	if hasTransport && (flow.PortFrom == dnsPort || flow.PortTo == dnsPort) {
		res.DNSForwarded = d.forwardDNS(l4, th, ip.PayloadLen, ts)
	}
	return res
}

// handleICMPv6 records neighbor advertisement target → frame source MAC.
// Other ICMPv6 types are ignored.
func (d *Dissector) handleICMPv6(v view, eth core.EthernetHeader) (string, error) {
	hdr, err := decodeICMPv6(v)
	if err != nil {
		return "", err
	}
	if hdr.Type != icmp6TypeNeighborAdvert {
		return "", nil
	}
	na, err := decodeNeighborAdvert(v)
	if err != nil {
		return "", err
	}
	d.cache.Put(na.Target.String(), eth.SrcString())
	return LearnedNDP, nil
}

// forwardDNS hands the transport payload to the DNS hook. ipPayloadLen is the
// IP-level size; the hook gets it minus the transport header.
func (d *Dissector) forwardDNS(l4 view, th core.TransportHeader, ipPayloadLen int, ts int64) bool {
	if d.hook == nil {
		return false
	}
	length := ipPayloadLen - th.HeaderLen
	if length <= 0 {
		return false
	}
	if !l4.has(th.HeaderLen, 1) {
		d.logger.WithField("caplen", l4.Len()).Warn("TRUNCATED dns payload")
		return false
	}
	d.hook.Handle(l4.window(th.HeaderLen, length), length, ts)
	return true
}

func dropped(err error) Result {
	return Result{Outcome: OutcomeDropped, Err: err}
}
