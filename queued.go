package rotalog

import (
	"sync/atomic"
	"time"
)

// QueuedSink decouples producers from file I/O with a bounded FIFO queue
// and a single consumer goroutine. Because only the consumer ever touches
// the backend, the write/rotate path needs no lock; the queue is the only
// synchronization a producer experiences. A producer's Emit can be blocked
// by queue capacity, never by a rotation in progress.
//
// I/O and rotation failures happen on the consumer goroutine where no
// producer is waiting, so they surface asynchronously on Errors.
type QueuedSink struct {
	backend    *FileBackend
	serializer *serializer
	format     string
	flags      int64

	queue          chan Record
	policy         string
	enqueueTimeout time.Duration
	drainTimeout   time.Duration

	errs     chan error
	flushReq chan chan struct{}

	dropped      atomic.Uint64 // Drops since last report
	totalDropped atomic.Uint64

	onRotation     RotationFunc
	events         chan RotationEvent
	dispatcherDone chan struct{}
	missedEvents   atomic.Uint64

	consumerDone chan struct{}
	closed       atomic.Bool
	warn         func(format string, args ...any)
}

// NewQueuedSink validates cfg, opens the backend and starts the consumer
// goroutine.
func NewQueuedSink(cfg *Config, onRotation RotationFunc) (*QueuedSink, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := NewFileBackend(cfg, nil)
	if err != nil {
		return nil, err
	}

	s := &QueuedSink{
		backend:        backend,
		serializer:     newSerializer(cfg.TimestampFormat),
		format:         cfg.Format,
		flags:          cfg.flags(),
		queue:          make(chan Record, cfg.QueueCapacity),
		policy:         cfg.BackpressurePolicy,
		enqueueTimeout: time.Duration(cfg.EnqueueTimeoutMs) * time.Millisecond,
		drainTimeout:   time.Duration(cfg.DrainTimeoutMs) * time.Millisecond,
		errs:           make(chan error, errorChannelBuffer),
		flushReq:       make(chan chan struct{}, 1),
		onRotation:     onRotation,
		consumerDone:   make(chan struct{}),
		warn:           func(string, ...any) {},
	}
	if cfg.InternalErrorsToStderr {
		s.warn = stderrWarn
	}

	if onRotation != nil {
		s.events = make(chan RotationEvent, rotationEventBuffer)
		s.dispatcherDone = make(chan struct{})
		go s.dispatchEvents()
	}

	go s.consume()
	return s, nil
}

// Backend exposes the sink's backend for watchdog registration.
func (s *QueuedSink) Backend() *FileBackend {
	return s.backend
}

// Errors returns the channel carrying asynchronous write and rotation
// failures from the consumer. The channel is closed after a clean drain.
func (s *QueuedSink) Errors() <-chan error {
	return s.errs
}

// Dropped returns the total number of records dropped under the lossy
// policy over the sink's lifetime.
func (s *QueuedSink) Dropped() uint64 {
	return s.totalDropped.Load()
}

// MissedRotationEvents returns how many rotation notifications were dropped
// because the observer could not keep up with the event buffer.
func (s *QueuedSink) MissedRotationEvents() uint64 {
	return s.missedEvents.Load()
}

// Emit enqueues the record. Under the drop policy a full queue counts the
// record and returns nil; under the block policy the producer waits for
// capacity, bounded by the configured enqueue timeout when one is set.
func (s *QueuedSink) Emit(r Record) (err error) {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	defer func() {
		if rec := recover(); rec != nil { // Send raced queue close
			s.restoreDrops(r)
			err = ErrSinkClosed
		}
	}()

	if s.policy == PolicyDrop {
		select {
		case s.queue <- r:
			s.reportDrops()
		default:
			s.restoreDrops(r)
		}
		return nil
	}

	if s.enqueueTimeout > 0 {
		timer := time.NewTimer(s.enqueueTimeout)
		defer timer.Stop()
		select {
		case s.queue <- r:
		case <-timer.C:
			return ErrQueueFull
		}
		return nil
	}

	s.queue <- r
	return nil
}

// Flush asks the consumer to sync the file and waits for confirmation. The
// request itself times out quickly when the consumer is wedged on I/O, so a
// stalled pipeline cannot hang its own flush callers indefinitely.
func (s *QueuedSink) Flush(timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}

	confirmChan := make(chan struct{})
	select {
	case s.flushReq <- confirmChan:
	case <-time.After(minWaitTime):
		return fmtErrorf("failed to send flush request to consumer (stalled or at capacity)")
	}

	select {
	case <-confirmChan:
		return nil
	case <-time.After(timeout):
		return &FlushTimeoutError{Timeout: timeout}
	}
}

// Close stops intake, drains the queue to completion or the configured
// drain deadline, then syncs and closes the handle. On a drain timeout the
// backend is left to the still-running consumer, the error channel stays
// open since that consumer may still report, and an error is returned.
func (s *QueuedSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.queue)

	var err error
	drained := true
	if s.drainTimeout > 0 {
		select {
		case <-s.consumerDone:
		case <-time.After(s.drainTimeout):
			drained = false
			err = fmtErrorf("consumer did not drain within timeout (%v)", s.drainTimeout)
		}
	} else {
		<-s.consumerDone
	}

	if drained {
		err = combineErrors(err, s.backend.Close())
		close(s.errs)
	}

	if s.events != nil {
		close(s.events)
		<-s.dispatcherDone
	}
	return err
}

// consume is the single goroutine that owns the backend: it dequeues in
// FIFO order, writes, rotates when due, and services flush requests.
func (s *QueuedSink) consume() {
	defer close(s.consumerDone)

	for {
		select {
		case r, ok := <-s.queue:
			if !ok {
				return
			}
			s.process(r)
		case confirmChan := <-s.flushReq:
			if err := s.backend.Flush(s.backend.Generation()); err != nil {
				s.reportErr(err)
			}
			close(confirmChan)
		}
	}
}

// process writes one record and performs the due rotation, reporting
// failures on the error channel since no producer is waiting on them.
func (s *QueuedSink) process(r Record) {
	_, err := s.backend.Write(s.serializer.serialize(s.format, r))
	if err != nil {
		s.restoreDrops(r)
		s.reportErr(err)
		return
	}

	if s.backend.RotationDue() {
		ev, rerr := s.backend.Rotate()
		if rerr != nil {
			s.reportErr(rerr)
			return
		}
		s.notify(ev)
	}
}

// reportDrops enqueues an in-band report after records were dropped, so the
// output records that a gap exists and how wide it is. The count rides on
// the report record and is restored if the report itself cannot be queued.
func (s *QueuedSink) reportDrops() {
	droppedCount := s.dropped.Swap(0)
	if droppedCount == 0 {
		return
	}

	dropRecord := Record{
		Flags:           s.flags,
		TimeStamp:       time.Now(),
		Level:           LevelError,
		Goroutine:       goid(),
		Args:            []any{"records were dropped", "dropped_count", droppedCount},
		unreportedDrops: droppedCount,
	}
	select {
	case s.queue <- dropRecord:
	default:
		s.dropped.Add(droppedCount)
	}
}

// restoreDrops counts a record that did not make it to the file. A failed
// drop report restores its carried count instead of counting as one.
func (s *QueuedSink) restoreDrops(r Record) {
	if r.unreportedDrops > 0 {
		// Restoring a report: originals are already in the total
		s.dropped.Add(r.unreportedDrops)
		return
	}
	s.dropped.Add(1)
	s.totalDropped.Add(1)
}

func (s *QueuedSink) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
		s.warn("rotalog: error channel full, dropping: %v\n", err)
	}
}

// notify hands the event to the dispatcher without ever blocking the
// consumer. After a drain-timeout Close the event channel is already
// closed while the consumer still runs; that send is swallowed and
// counted, like event buffer overflow.
func (s *QueuedSink) notify(ev RotationEvent) {
	if s.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil { // Send raced channel close
			s.missedEvents.Add(1)
		}
	}()
	select {
	case s.events <- ev:
	default:
		s.missedEvents.Add(1)
	}
}

func (s *QueuedSink) dispatchEvents() {
	defer close(s.dispatcherDone)
	for ev := range s.events {
		s.onRotation(ev)
	}
}
