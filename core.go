package rotalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Core routes records to registered sinks and owns the process-wide
// contextual attributes: the monotonic sequence counter and the emitting
// goroutine's identity. Both are attached when the record is constructed,
// not when it is delivered, so ordering by sequence reflects creation order
// even when per-sink queues reorder delivery.
//
// Core is an explicit, lifecycle-scoped object rather than a package
// singleton; tests and embedded uses get isolated instances.
type Core struct {
	mu    sync.Mutex   // Serializes registry mutations
	sinks atomic.Value // Stores []Sink snapshot, read lock-free by Dispatch

	seq   atomic.Uint64
	level atomic.Int64
	flags int64

	internalErrors bool
}

// NewCore creates a registry with no sinks attached.
func NewCore(cfg *Config) *Core {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Core{
		flags:          cfg.flags(),
		internalErrors: cfg.InternalErrorsToStderr,
	}
	c.level.Store(cfg.Level)
	c.sinks.Store([]Sink{})
	return c
}

// SetLevel changes the minimum level routed to sinks.
func (c *Core) SetLevel(level int64) {
	c.level.Store(level)
}

// RegisterSink adds a sink to the fan-out set. A sink added mid-dispatch
// is not guaranteed to see records already in flight.
func (c *Core) RegisterSink(s Sink) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.sinks.Load().([]Sink)
	next := make([]Sink, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, s)
	c.sinks.Store(next)
}

// DeregisterSink removes a sink from the fan-out set. It does not close
// the sink: a dispatch running against an older snapshot may still hold a
// reference, so teardown belongs to the caller after deregistration.
func (c *Core) DeregisterSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.sinks.Load().([]Sink)
	next := make([]Sink, 0, len(current))
	for _, existing := range current {
		if existing != s {
			next = append(next, existing)
		}
	}
	c.sinks.Store(next)
}

// NewRecord constructs a record with the sequence id and goroutine id
// attached at creation time.
func (c *Core) NewRecord(level int64, args ...any) Record {
	return Record{
		Flags:     c.flags,
		TimeStamp: time.Now(),
		Level:     level,
		Sequence:  c.seq.Add(1),
		Goroutine: goid(),
		Args:      args,
	}
}

// Dispatch fans the record out to a point-in-time snapshot of registered
// sinks. A concurrent deregistration cannot route into a destroyed sink;
// delivery is at-least-once to the sinks current at dispatch time, with no
// relative ordering guaranteed between sinks.
func (c *Core) Dispatch(r Record) error {
	var err error
	for _, s := range c.sinks.Load().([]Sink) {
		err = combineErrors(err, s.Emit(r))
	}
	return err
}

// Debug logs a message at debug level
func (c *Core) Debug(args ...any) {
	c.log(LevelDebug, args...)
}

// Info logs a message at info level
func (c *Core) Info(args ...any) {
	c.log(LevelInfo, args...)
}

// Warn logs a message at warning level
func (c *Core) Warn(args ...any) {
	c.log(LevelWarn, args...)
}

// Error logs a message at error level
func (c *Core) Error(args ...any) {
	c.log(LevelError, args...)
}

// Flush forces buffered bytes to the device on every sink that supports it.
func (c *Core) Flush(timeout time.Duration) error {
	var err error
	for _, s := range c.sinks.Load().([]Sink) {
		if f, ok := s.(Flusher); ok {
			err = combineErrors(err, f.Flush(timeout))
		}
	}
	return err
}

// Close closes every registered sink and empties the registry.
func (c *Core) Close() error {
	c.mu.Lock()
	current := c.sinks.Load().([]Sink)
	c.sinks.Store([]Sink{})
	c.mu.Unlock()

	var err error
	for _, s := range current {
		err = combineErrors(err, s.Close())
	}
	return err
}

func (c *Core) log(level int64, args ...any) {
	if level < c.level.Load() {
		return
	}
	if err := c.Dispatch(c.NewRecord(level, args...)); err != nil && c.internalErrors {
		fprintfStderr("rotalog: dispatch failed: %v\n", err)
	}
}
