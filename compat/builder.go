package compat

import (
	"fmt"

	"github.com/rotalog/rotalog"
)

// Builder provides a flexible way to create configured logger adapters for
// gnet and fasthttp. It can use an existing *rotalog.Core instance or
// create a new one, backed by a queued sink, from a *rotalog.Config.
type Builder struct {
	core    *rotalog.Core
	logCfg  *rotalog.Config
	ownSink *rotalog.QueuedSink
	err     error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithCore specifies an existing core to use for the adapters
// Recommended for applications that already have a central core instance
// If this is set WithConfig is ignored
func (b *Builder) WithCore(c *rotalog.Core) *Builder {
	if c == nil {
		b.err = fmt.Errorf("rotalog/compat: provided core cannot be nil")
		return b
	}
	b.core = c
	return b
}

// WithConfig provides a configuration for a new core and queued sink
// This is used only if an existing core is NOT provided via WithCore
// If neither WithCore nor WithConfig is used, defaults are applied
func (b *Builder) WithConfig(cfg *rotalog.Config) *Builder {
	b.logCfg = cfg
	return b
}

// getCore resolves the core to be used, creating one if necessary
func (b *Builder) getCore() (*rotalog.Core, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.core != nil {
		return b.core, nil
	}

	cfg := b.logCfg
	if cfg == nil {
		cfg = rotalog.DefaultConfig()
	}

	sink, err := rotalog.NewQueuedSink(cfg, nil)
	if err != nil {
		return nil, err
	}

	core := rotalog.NewCore(cfg)
	core.RegisterSink(sink)

	// Cache for subsequent builds with this builder
	b.core = core
	b.ownSink = sink
	return core, nil
}

// BuildGnet creates a gnet adapter
// It can be used for servers that require a standard gnet logger
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	c, err := b.getCore()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(c, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	c, err := b.getCore()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(c, opts...), nil
}

// Close tears down a core created by this builder. It is a no-op when the
// core was supplied through WithCore.
func (b *Builder) Close() error {
	if b.ownSink == nil {
		return nil
	}
	return b.core.Close()
}
