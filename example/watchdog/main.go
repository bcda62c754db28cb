package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotalog/rotalog"
)

// Demonstrates watchdog supervision of a queued sink: producers emit
// through the core while the watchdog samples the backend for stalled
// rotations and reports on stderr without touching the pipeline.
func main() {
	cfg, err := rotalog.NewConfigFromDefaults(
		"directory=./logs",
		"name=demo",
		"rotation_threshold_kb=64",
		"max_archived_files=5",
		"queue_capacity=4096",
		"backpressure_policy=drop",
		"watchdog_interval_ms=5000",
		"watchdog_grace_period_ms=10000",
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sink, err := rotalog.NewQueuedSink(cfg, func(ev rotalog.RotationEvent) {
		fmt.Printf("rotation #%d -> %s\n", ev.Index, ev.ArchivePath)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	watchdog := rotalog.NewWatchdog(cfg, nil)
	watchdog.Watch(sink.Backend())
	watchdog.Start()
	defer watchdog.Stop()

	core := rotalog.NewCore(cfg)
	core.RegisterSink(sink)
	defer core.Close()

	// Surface async write/rotation errors
	go func() {
		for err := range sink.Errors() {
			fmt.Fprintln(os.Stderr, "sink error:", err)
		}
	}()

	for i := 0; i < 100000; i++ {
		core.Info("message", i, "payload", "some data to fill the file")
	}
	if err := core.Flush(time.Second); err != nil {
		fmt.Fprintln(os.Stderr, "flush:", err)
	}
	fmt.Println("dropped:", sink.Dropped())
}
