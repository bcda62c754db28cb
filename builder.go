package rotalog

// Builder provides a fluent API for building sink configurations.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg        *Config
	onRotation RotationFunc
	err        error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// BuildDirect creates a direct (synchronous) sink with the built configuration.
func (b *Builder) BuildDirect() (*DirectSink, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewDirectSink(b.cfg, b.onRotation)
}

// BuildQueued creates a queued (asynchronous) sink with the built configuration.
func (b *Builder) BuildQueued() (*QueuedSink, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewQueuedSink(b.cfg, b.onRotation)
}

// Config returns a copy of the accumulated configuration.
func (b *Builder) Config() *Config {
	return b.cfg.Clone()
}

// Level sets the log level.
func (b *Builder) Level(level int64) *Builder {
	b.cfg.Level = level
	return b
}

// LevelString sets the log level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	levelVal, err := Level(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = levelVal
	return b
}

// Name sets the base name for log files.
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// Directory sets the log directory.
func (b *Builder) Directory(dir string) *Builder {
	b.cfg.Directory = dir
	return b
}

// Extension sets the log file extension.
func (b *Builder) Extension(ext string) *Builder {
	b.cfg.Extension = ext
	return b
}

// Format sets the output format.
func (b *Builder) Format(format string) *Builder {
	b.cfg.Format = format
	return b
}

// RotationThresholdKB sets the file size that triggers rotation.
func (b *Builder) RotationThresholdKB(size int64) *Builder {
	b.cfg.RotationThresholdKB = size
	return b
}

// MaxArchivedFiles sets the retention count for archived files.
func (b *Builder) MaxArchivedFiles(n int64) *Builder {
	b.cfg.MaxArchivedFiles = n
	return b
}

// AutoFlush sets whether every write is synced to the device.
func (b *Builder) AutoFlush(enable bool) *Builder {
	b.cfg.AutoFlush = enable
	return b
}

// QueueCapacity sets the queued sink's bounded queue size.
func (b *Builder) QueueCapacity(size int64) *Builder {
	b.cfg.QueueCapacity = size
	return b
}

// BackpressurePolicy sets the queued sink's full-queue behavior.
func (b *Builder) BackpressurePolicy(policy string) *Builder {
	b.cfg.BackpressurePolicy = policy
	return b
}

// EnqueueTimeoutMs bounds how long a blocking-policy emit waits for capacity.
func (b *Builder) EnqueueTimeoutMs(ms int64) *Builder {
	b.cfg.EnqueueTimeoutMs = ms
	return b
}

// DrainTimeoutMs bounds how long Close waits for the consumer to drain.
func (b *Builder) DrainTimeoutMs(ms int64) *Builder {
	b.cfg.DrainTimeoutMs = ms
	return b
}

// WatchdogIntervalMs sets the watchdog sampling interval.
func (b *Builder) WatchdogIntervalMs(ms int64) *Builder {
	b.cfg.WatchdogIntervalMs = ms
	return b
}

// WatchdogGracePeriodMs sets how long a rotation may stay pending before
// the watchdog reports a stall.
func (b *Builder) WatchdogGracePeriodMs(ms int64) *Builder {
	b.cfg.WatchdogGracePeriodMs = ms
	return b
}

// OnRotation registers a rotation observer for the built sink. The observer
// runs outside the sink's exclusion discipline and must not assume it does.
func (b *Builder) OnRotation(fn RotationFunc) *Builder {
	b.onRotation = fn
	return b
}

// Example usage:
// sink, err := rotalog.NewBuilder().
//
//	Directory("/var/log/app").
//	Name("app").
//	RotationThresholdKB(100).
//	MaxArchivedFiles(7).
//	BuildQueued()
//
// if err == nil {
//
//	 core := rotalog.NewCore(nil)
//	 core.RegisterSink(sink)
//	 core.Info("engine initialized")
//
// }
