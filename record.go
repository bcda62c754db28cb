package rotalog

import (
	"time"
)

// Record is a single immutable log entry. Sequence and Goroutine are
// assigned by the Core at construction time, so ordering by Sequence
// reflects creation order even when delivery is reordered by per-sink
// queues.
type Record struct {
	Flags     int64
	TimeStamp time.Time
	Level     int64
	Sequence  uint64
	Goroutine uint64
	Args      []any

	unreportedDrops uint64 // Dropped record tracker, carried by drop reports
}

// RotationEvent describes one completed rotation. It is delivered to the
// sink's rotation observer after the backend has left its exclusion
// discipline; the observer must not assume the archive file still exists
// (retention may already have removed it).
type RotationEvent struct {
	ArchivePath string
	Index       uint64
	When        time.Time
}

// RotationFunc observes completed rotations. It runs on a dedicated
// dispatcher goroutine, never while the sink holds its write lock, so an
// observer that emits through the same sink enqueues normally instead of
// deadlocking.
type RotationFunc func(RotationEvent)

// StallReport is the watchdog's advisory finding: a backend has had a
// rotation pending for longer than the grace period without the completion
// counter advancing.
type StallReport struct {
	BackendPath string
	DueFor      time.Duration
	Rotations   uint64
	When        time.Time
}
