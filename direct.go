package rotalog

import (
	"sync"
	"sync/atomic"
	"time"
)

// DirectSink writes records synchronously on the producer's goroutine. One
// mutex serializes write and rotation on the backend: interleaving a write
// from one goroutine with a close/reopen from another is the handle-conflict
// hazard this lock exists to prevent. The producer therefore blocks for the
// full duration of the write, and of the rotation when one triggers.
//
// Rotation observers never run under that mutex. Completed rotations are
// posted to a buffered channel drained by a dispatcher goroutine, so an
// observer that emits through this same sink takes the lock like any other
// producer instead of deadlocking on a lock its caller already holds.
type DirectSink struct {
	backend    *FileBackend
	serializer *serializer
	format     string

	mu sync.Mutex

	onRotation     RotationFunc
	events         chan RotationEvent
	dispatcherDone chan struct{}
	missedEvents   atomic.Uint64

	closed atomic.Bool
}

// NewDirectSink validates cfg, opens the backend and, when an observer is
// given, starts the rotation event dispatcher.
func NewDirectSink(cfg *Config, onRotation RotationFunc) (*DirectSink, error) {
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

	s := &DirectSink{
		backend:    backend,
		serializer: newSerializer(cfg.TimestampFormat),
		format:     cfg.Format,
		onRotation: onRotation,
	}

	if onRotation != nil {
		s.events = make(chan RotationEvent, rotationEventBuffer)
		s.dispatcherDone = make(chan struct{})
		go s.dispatchEvents()
	}

	return s, nil
}

// Backend exposes the sink's backend for watchdog registration.
func (s *DirectSink) Backend() *FileBackend {
	return s.backend
}

// Emit serializes and writes the record, rotating first the moment the
// threshold has been reached, all under the single exclusion lock. The
// rotation notification fires after the lock is released.
func (s *DirectSink) Emit(r Record) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}

	s.mu.Lock()
	if s.closed.Load() { // Close took the lock first
		s.mu.Unlock()
		return ErrSinkClosed
	}
	var ev RotationEvent
	var rotated bool

	_, err := s.backend.Write(s.serializer.serialize(s.format, r))
	if err == nil && s.backend.RotationDue() {
		ev, err = s.backend.Rotate()
		rotated = err == nil
	}
	s.mu.Unlock()

	if rotated {
		s.notify(ev)
	}
	return err
}

// Flush syncs the current handle. The generation is captured and presented
// under the same lock hold, so it can never be stale here; the tagged form
// exists for callers outside the lock.
func (s *DirectSink) Flush(time.Duration) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSinkClosed
	}
	return s.backend.Flush(s.backend.Generation())
}

// Reinit recovers the sink's backend after a failed rotation.
func (s *DirectSink) Reinit() error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrSinkClosed
	}
	return s.backend.Reinit()
}

// MissedRotationEvents returns how many rotation notifications were dropped
// because the observer could not keep up with the event buffer.
func (s *DirectSink) MissedRotationEvents() uint64 {
	return s.missedEvents.Load()
}

// Close flushes and closes the backend and stops the dispatcher. Emits
// racing with Close either complete or return ErrSinkClosed.
func (s *DirectSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	err := s.backend.Close()
	s.mu.Unlock()

	if s.events != nil {
		close(s.events)
		<-s.dispatcherDone
	}
	return err
}

// notify hands the event to the dispatcher without ever blocking the
// emitting goroutine. A send racing sink close is swallowed; the event
// buffer overflowing is counted.
func (s *DirectSink) notify(ev RotationEvent) {
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

// dispatchEvents delivers rotation events to the observer, one at a time,
// outside the sink's exclusion lock.
func (s *DirectSink) dispatchEvents() {
	defer close(s.dispatcherDone)
	for ev := range s.events {
		s.onRotation(ev)
	}
}
