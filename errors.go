package rotalog

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by sinks and backends.
var (
	// ErrSinkClosed is returned by Emit after Close has been called.
	ErrSinkClosed = errors.New("rotalog: sink is closed")

	// ErrQueueFull is returned by a blocking-policy queued sink when the
	// enqueue deadline elapses before capacity frees.
	ErrQueueFull = errors.New("rotalog: queue full")

	// ErrBackendDegraded is returned by writes against a backend that lost
	// its handle to a failed rotation and has not been reinitialized.
	ErrBackendDegraded = errors.New("rotalog: backend degraded, no writable handle")

	// ErrStaleGeneration is returned by Flush when the presented handle
	// generation has been superseded by a rotation.
	ErrStaleGeneration = errors.New("rotalog: stale handle generation")
)

// Rotation step names used in RotationError.
const (
	stepRename = "rename"
	stepReopen = "reopen"
)

// RotationError reports a failed step of the close-archive-reopen sequence.
// Only the rename and reopen steps produce one; a flush or close failure
// during rotation keeps a usable handle and is demoted to a warning.
type RotationError struct {
	Step string
	Path string
	Err  error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotalog: rotation %s failed for '%s': %v", e.Step, e.Path, e.Err)
}

func (e *RotationError) Unwrap() error {
	return e.Err
}

// Degraded reports whether the failure left the backend without a writable
// handle. Flush and close failures keep the old handle usable; a failed
// rename or reopen does not.
func (e *RotationError) Degraded() bool {
	return e.Step == stepRename || e.Step == stepReopen
}

// FlushTimeoutError is returned when a flush confirmation does not arrive
// from the queued sink's consumer within the caller's timeout.
type FlushTimeoutError struct {
	Timeout time.Duration
}

func (e *FlushTimeoutError) Error() string {
	return fmt.Sprintf("rotalog: timeout waiting for flush confirmation (%v)", e.Timeout)
}
