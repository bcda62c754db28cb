package rotalog

import (
	"time"
)

// Sink binds a backend to a delivery model. Emit hands one record to the
// sink; whether the caller blocks on file I/O depends on the variant.
type Sink interface {
	Emit(Record) error
	Close() error
}

// Flusher is implemented by sinks that can force buffered bytes to the
// device on demand.
type Flusher interface {
	Flush(timeout time.Duration) error
}
