package rotalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Watchdog is an independent observer that detects a stalled rotation: a
// backend whose rotation has been due for longer than the grace period
// without the completion counter advancing. It reports and never corrects;
// restarting or reinitializing is an operator decision.
//
// Reports go through a side channel (the report func, stderr by default)
// and never through the logging pipeline itself, so a wedged pipeline
// cannot silence its own stall report.
type Watchdog struct {
	interval time.Duration
	grace    time.Duration
	report   func(StallReport)
	verbose  bool

	mu       sync.Mutex
	backends []*FileBackend
	last     map[*FileBackend]uint64 // Rotation counts at previous sample, owned by run

	started atomic.Bool
	stopped atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWatchdog creates a watchdog with the configured sampling interval and
// grace period. A nil report func sends reports to stderr.
func NewWatchdog(cfg *Config, report func(StallReport)) *Watchdog {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if report == nil {
		report = func(r StallReport) {
			fprintfStderr("rotalog: watchdog: rotation stalled on '%s' for %v (completed rotations: %d)\n",
				r.BackendPath, r.DueFor.Round(time.Millisecond), r.Rotations)
		}
	}
	return &Watchdog{
		interval: time.Duration(cfg.WatchdogIntervalMs) * time.Millisecond,
		grace:    time.Duration(cfg.WatchdogGracePeriodMs) * time.Millisecond,
		report:   report,
		verbose:  cfg.InternalErrorsToStderr,
		last:     make(map[*FileBackend]uint64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Watch adds a backend to the sampling set. Safe while the watchdog runs.
func (w *Watchdog) Watch(b *FileBackend) {
	if b == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.backends = append(w.backends, b)
}

// Start launches the sampling goroutine. Safe to call once.
func (w *Watchdog) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
}

// Stop halts sampling and waits for the goroutine to exit. Safe to call
// concurrently and repeatedly.
func (w *Watchdog) Stop() {
	if !w.started.Load() {
		return
	}
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
	<-w.done
}

func (w *Watchdog) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check samples every watched backend. A completed rotation clears the
// due marker, so a marker older than the grace period means the rotation
// sequence is wedged (candidate deadlock).
func (w *Watchdog) check() {
	w.mu.Lock()
	backends := make([]*FileBackend, len(w.backends))
	copy(backends, w.backends)
	w.mu.Unlock()

	now := time.Now()
	for _, b := range backends {
		rotations := b.Rotations()
		if w.verbose && rotations != w.last[b] {
			fprintfStderr("rotalog: watchdog: '%s' completed %d rotations since last sample\n",
				b.Path(), rotations-w.last[b])
		}
		w.last[b] = rotations

		due := b.DueSince()
		if due.IsZero() {
			continue
		}
		elapsed := now.Sub(due)
		if elapsed <= w.grace {
			continue
		}
		w.report(StallReport{
			BackendPath: b.Path(),
			DueFor:      elapsed,
			Rotations:   b.Rotations(),
			When:        now,
		})
	}
}
