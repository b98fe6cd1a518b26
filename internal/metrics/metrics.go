// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames handed to the dissector by outcome
	// (flow, arp, skipped, dropped).
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowreader_frames_total",
			Help: "Total number of frames dissected, by outcome",
		},
		[]string{"outcome"},
	)

	// FrameDropsTotal counts dropped frames by reason.
	FrameDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowreader_frame_drops_total",
			Help: "Total number of frames dropped during dissection, by reason",
		},
		[]string{"reason"},
	)

	// FlowsEmittedTotal counts flow records written.
	FlowsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowreader_flows_emitted_total",
			Help: "Total number of flow records emitted",
		},
	)

	// BindingsLearnedTotal counts address bindings recorded, by source (arp, ndp).
	BindingsLearnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowreader_bindings_learned_total",
			Help: "Total number of IP to MAC bindings recorded",
		},
		[]string{"source"},
	)

	// AddressCacheSize tracks the number of bindings in the address cache.
	AddressCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowreader_address_cache_size",
			Help: "Current number of IP to MAC bindings",
		},
	)

	// DNSPayloadsTotal counts payloads forwarded to the DNS hook.
	DNSPayloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowreader_dns_payloads_total",
			Help: "Total number of port-53 payloads forwarded to the DNS hook",
		},
	)

	// DNSDecodeErrorsTotal counts forwarded payloads the DNS hook could not decode.
	DNSDecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowreader_dns_decode_errors_total",
			Help: "Total number of DNS payloads that failed to decode",
		},
	)

	// CaptureDropsTotal mirrors the capture handle's own drop counters at shutdown.
	CaptureDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowreader_capture_drops_total",
			Help: "Total number of packets dropped by the capture layer",
		},
		[]string{"stage"},
	)
)

// Drop reasons for FrameDropsTotal.
const (
	ReasonTruncated       = "truncated"
	ReasonBadHeaderLength = "bad_header_length"
	ReasonBadVersion      = "bad_version"
	ReasonSinkWrite       = "sink_write"
	ReasonOther           = "other"
)
