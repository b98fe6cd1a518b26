// Package pipeline runs the single-threaded capture → dissect → emit loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"firestige.xyz/flowreader/internal/core"
	"firestige.xyz/flowreader/internal/core/decoder"
	"firestige.xyz/flowreader/internal/log"
	"firestige.xyz/flowreader/internal/metrics"
	"firestige.xyz/flowreader/internal/source"
)

// Cache is the address cache owned by a session.
type Cache interface {
	decoder.AddressCache
	Len() int
}

// Session owns every piece of per-process state: the capture source, the
// address cache and the dissector built around them. One frame is dissected
// and emitted before the next is read.
type Session struct {
	src       source.Source
	cache     Cache
	dissector *decoder.Dissector
	logger    log.Logger
	metrics   *Metrics

	// Written from the signal goroutine, read between frames.
	stopped atomic.Bool
}

// Config contains session configuration.
type Config struct {
	Source source.Source
	Cache  Cache
	Sink   decoder.FlowSink
	Hook   decoder.DNSHook // optional
	Logger log.Logger
}

// New creates a new session.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	return &Session{
		src:   cfg.Source,
		cache: cfg.Cache,
		dissector: decoder.New(decoder.Config{
			Cache:  cfg.Cache,
			Sink:   cfg.Sink,
			Hook:   cfg.Hook,
			Logger: cfg.Logger,
		}),
		logger:  cfg.Logger,
		metrics: NewMetrics(),
	}
}

// Stop asks the loop to return at the next frame boundary. It only sets a
// flag and is safe to call from any goroutine.
func (s *Session) Stop() {
	s.stopped.Store(true)
}

// Run reads frames until the source is exhausted, Stop is called or ctx is
// done. Reaching the end of a replay file and stopping are clean exits;
// a capture read failure or an unwritable output stream is returned.
func (s *Session) Run(ctx context.Context) error {
	s.logger.WithField("source", s.src.Name()).Info("capture started")
	defer s.logShutdown()

	for {
		if s.stopped.Load() || ctx.Err() != nil {
			s.logger.Info("capture stopped")
			return nil
		}

		raw, err := s.src.Next()
		switch {
		case err == nil:
		case errors.Is(err, core.ErrReadTimeout):
			continue
		case errors.Is(err, io.EOF):
			s.logger.Info("end of capture file")
			return nil
		default:
			return fmt.Errorf("capture: %w", err)
		}

		res := s.dissector.Dissect(raw)
		s.metrics.observe(res, s.cache.Len())
		if errors.Is(res.Err, core.ErrSinkWrite) {
			return res.Err
		}
	}
}

// RunUntilSignal runs the session and stops it on SIGINT or SIGTERM.
func (s *Session) RunUntilSignal(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return s.Run(ctx)
}

// Stats returns session counters.
func (s *Session) Stats() Stats {
	return s.metrics.snapshot()
}

func (s *Session) logShutdown() {
	st := s.Stats()
	s.logger.WithFields(map[string]interface{}{
		"frames":  st.Frames,
		"flows":   st.Flows,
		"dropped": st.Dropped,
		"skipped": st.Skipped,
		"dns":     st.DNSForwarded,
		"cache":   s.cache.Len(),
	}).Info("dissection summary")

	cs, err := s.src.Stats()
	if err != nil {
		// Replay files have no capture counters.
		s.logger.WithError(err).Debug("capture statistics unavailable")
		return
	}
	metrics.CaptureDropsTotal.WithLabelValues("kernel").Add(float64(cs.Dropped))
	metrics.CaptureDropsTotal.WithLabelValues("interface").Add(float64(cs.IfDropped))
	s.logger.Infof("%d packets received by filter", cs.Received)
	s.logger.Infof("%d packets dropped by kernel", cs.Dropped)
	if cs.IfDropped > 0 {
		s.logger.Infof("%d packets dropped by interface", cs.IfDropped)
	}
}
