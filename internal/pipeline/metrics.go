package pipeline

import (
	"errors"
	"sync/atomic"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/core/decoder"
	"firestige.xyz/flowreader/internal/metrics"
)

// Metrics contains per-session counters. The loop goroutine is the only
// writer; atomics let Stats be read from elsewhere.
type Metrics struct {
	Frames       atomic.Uint64
	Flows        atomic.Uint64
	ARP          atomic.Uint64
	Skipped      atomic.Uint64
	Dropped      atomic.Uint64
	Learned      atomic.Uint64
	DNSForwarded atomic.Uint64
}

// Stats is a point-in-time copy of Metrics.
type Stats struct {
	Frames       uint64
	Flows        uint64
	ARP          uint64
	Skipped      uint64
	Dropped      uint64
	Learned      uint64
	DNSForwarded uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// observe records one dissection result locally and in Prometheus.
func (m *Metrics) observe(res decoder.Result, cacheSize int) {
	m.Frames.Add(1)
	metrics.FramesTotal.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case decoder.OutcomeFlow:
		m.Flows.Add(1)
		metrics.FlowsEmittedTotal.Inc()
	case decoder.OutcomeARP:
		m.ARP.Add(1)
	case decoder.OutcomeSkipped:
		m.Skipped.Add(1)
	case decoder.OutcomeDropped:
		m.Dropped.Add(1)
		metrics.FrameDropsTotal.WithLabelValues(dropReason(res.Err)).Inc()
	}

	if res.Learned != "" {
		m.Learned.Add(1)
		metrics.BindingsLearnedTotal.WithLabelValues(res.Learned).Inc()
		metrics.AddressCacheSize.Set(float64(cacheSize))
	}
	if res.DNSForwarded {
		m.DNSForwarded.Add(1)
		metrics.DNSPayloadsTotal.Inc()
	}
}

func (m *Metrics) snapshot() Stats {
	return Stats{
		Frames:       m.Frames.Load(),
		Flows:        m.Flows.Load(),
		ARP:          m.ARP.Load(),
		Skipped:      m.Skipped.Load(),
		Dropped:      m.Dropped.Load(),
		Learned:      m.Learned.Load(),
		DNSForwarded: m.DNSForwarded.Load(),
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, core.ErrPacketTooShort), errors.Is(err, core.ErrTruncatedIPv6):
		return metrics.ReasonTruncated
	case errors.Is(err, core.ErrBadHeaderLength):
		return metrics.ReasonBadHeaderLength
	case errors.Is(err, core.ErrBadVersion):
		return metrics.ReasonBadVersion
	case errors.Is(err, core.ErrSinkWrite):
		return metrics.ReasonSinkWrite
	default:
		return metrics.ReasonOther
	}
}
