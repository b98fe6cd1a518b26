package pipeline

import (
	"fmt"

	"firestige.xyz/flowreader/internal/core/decoder"
	"firestige.xyz/flowreader/internal/log"
	"firestige.xyz/flowreader/internal/source"
)

// Builder provides a fluent interface for assembling a Session.
type Builder struct {
	config Config
}

// NewBuilder creates a new session builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSource sets the frame source.
func (b *Builder) WithSource(src source.Source) *Builder {
	b.config.Source = src
	return b
}

// WithCache sets the address cache.
func (b *Builder) WithCache(c Cache) *Builder {
	b.config.Cache = c
	return b
}

// WithSink sets the flow record sink.
func (b *Builder) WithSink(s decoder.FlowSink) *Builder {
	b.config.Sink = s
	return b
}

// WithDNSHook sets the port-53 payload hook.
func (b *Builder) WithDNSHook(h decoder.DNSHook) *Builder {
	b.config.Hook = h
	return b
}

// WithLogger sets the session logger.
func (b *Builder) WithLogger(l log.Logger) *Builder {
	b.config.Logger = l
	return b
}

// Build creates the session. Source, cache and sink are required.
func (b *Builder) Build() (*Session, error) {
	switch {
	case b.config.Source == nil:
		return nil, fmt.Errorf("pipeline: source is required")
	case b.config.Cache == nil:
		return nil, fmt.Errorf("pipeline: cache is required")
	case b.config.Sink == nil:
		return nil, fmt.Errorf("pipeline: sink is required")
	}
	return New(b.config), nil
}
