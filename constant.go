package rotalog

import (
	"time"
)

// Log level constants
const (
	LevelDebug int64 = -4
	LevelInfo  int64 = 0
	LevelWarn  int64 = 4
	LevelError int64 = 8
)

// Record flags for controlling output structure
const (
	FlagShowTimestamp int64 = 0b001
	FlagShowLevel     int64 = 0b010
	FlagDefault             = FlagShowTimestamp | FlagShowLevel
)

// Backpressure policies for the queued sink
const (
	PolicyBlock = "block"
	PolicyDrop  = "drop"
)

const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Capacity of the rotation notification channel; notifications beyond
	// this while the dispatcher is busy are counted and dropped
	rotationEventBuffer = 16
	// Capacity of the queued sink's async error channel
	errorChannelBuffer = 64
	// Size multiplier for KB values in config
	sizeMultiplier = 1000
)
