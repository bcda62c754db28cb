package rotalog

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FileBackend owns the single open handle at one logical path, the running
// byte counter, and the rotation threshold. It performs the physical write
// and the close-archive-reopen sequence.
//
// The backend itself carries no lock: every mutating method must be called
// under the owning sink's exclusion discipline (the direct sink's mutex, or
// being the queued sink's consumer goroutine). Only Rotations, DueSince,
// Generation and Path are safe to call from other goroutines; the watchdog
// relies on that.
type FileBackend struct {
	dir       string
	name      string
	ext       string
	threshold int64
	autoFlush bool

	collector   Collector
	maxArchived int
	warn        func(format string, args ...any)

	// Mutated only under the exclusion discipline
	file          *os.File
	size          int64
	rotationIndex uint64
	degraded      bool

	// Read concurrently by the watchdog
	generation atomic.Uint64
	rotations  atomic.Uint64
	dueSince   atomic.Int64 // unix nanos, 0 while no rotation is pending
}

// NewFileBackend creates the log directory if needed and opens the initial
// handle at the logical path.
func NewFileBackend(cfg *Config, collector Collector) (*FileBackend, error) {
	if collector == nil {
		collector = &TimestampCollector{}
	}

	b := &FileBackend{
		dir:         cfg.Directory,
		name:        cfg.Name,
		ext:         cfg.Extension,
		threshold:   cfg.RotationThresholdKB * sizeMultiplier,
		autoFlush:   cfg.AutoFlush,
		collector:   collector,
		maxArchived: int(cfg.MaxArchivedFiles),
		warn:        func(string, ...any) {},
	}
	if cfg.InternalErrorsToStderr {
		b.warn = stderrWarn
	}
	if tc, ok := collector.(*TimestampCollector); ok && tc.Warn == nil {
		tc.Warn = b.warn
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return nil, fmtErrorf("failed to create log directory '%s': %w", b.dir, err)
	}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

// Path returns the logical path of the active log file.
func (b *FileBackend) Path() string {
	filename := b.name
	if b.ext != "" {
		filename = b.name + "." + b.ext
	}
	return filepath.Join(b.dir, filename)
}

// Generation returns the current handle generation. It increments exactly
// when a new handle opens, so callers can detect that a handle they wrote
// to has been superseded by rotation.
func (b *FileBackend) Generation() uint64 {
	return b.generation.Load()
}

// Rotations returns the monotonically increasing count of completed
// rotations. Sampled by the watchdog.
func (b *FileBackend) Rotations() uint64 {
	return b.rotations.Load()
}

// DueSince returns when the pending rotation became due, or the zero time
// if none is pending. Sampled by the watchdog.
func (b *FileBackend) DueSince() time.Time {
	ns := b.dueSince.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Write serializes one record's bytes to the current handle and updates the
// byte counter. When the counter reaches the threshold the backend marks a
// rotation as due; it does not rotate itself, the caller decides when.
func (b *FileBackend) Write(p []byte) (int, error) {
	if b.degraded || b.file == nil {
		return 0, ErrBackendDegraded
	}

	n, err := b.file.Write(p)
	b.size += int64(n)
	if err != nil {
		return n, fmtErrorf("failed to write to log file '%s': %w", b.Path(), err)
	}

	if b.autoFlush {
		if err := b.file.Sync(); err != nil {
			return n, fmtErrorf("failed to sync log file '%s': %w", b.Path(), err)
		}
	}

	if b.threshold > 0 && b.size >= b.threshold {
		b.dueSince.CompareAndSwap(0, time.Now().UnixNano())
	}
	return n, nil
}

// RotationDue reports whether the byte counter has reached the threshold.
func (b *FileBackend) RotationDue() bool {
	return b.threshold > 0 && b.size >= b.threshold && !b.degraded
}

// Rotate executes the rotation sequence in strict order: flush, close,
// archive rename, reopen, counter reset. The returned event describes the
// archived file; the caller delivers it to observers after leaving the
// exclusion discipline. A rename or reopen failure leaves the backend
// degraded and every subsequent Write fails until Reinit.
func (b *FileBackend) Rotate() (RotationEvent, error) {
	if b.degraded {
		return RotationEvent{}, ErrBackendDegraded
	}

	logicalPath := b.Path()

	if b.file != nil {
		if b.autoFlush {
			if err := b.file.Sync(); err != nil {
				// The handle is still usable, report and carry on closing
				b.warn("rotalog: failed to sync before rotation: %v\n", err)
			}
		}
		if err := b.file.Close(); err != nil {
			b.warn("rotalog: failed to close log file before rotation: %v\n", err)
		}
		b.file = nil

		index := b.rotationIndex
		archiveName := b.collector.ArchiveName(b.name, b.ext, index, time.Now())
		archivePath := filepath.Join(b.dir, archiveName)

		if err := os.Rename(logicalPath, archivePath); err != nil {
			b.degraded = true
			return RotationEvent{}, &RotationError{Step: stepRename, Path: logicalPath, Err: err}
		}

		if err := b.open(); err != nil {
			b.degraded = true
			return RotationEvent{}, &RotationError{Step: stepReopen, Path: logicalPath, Err: err}
		}

		b.rotationIndex++
		b.rotations.Add(1)
		b.dueSince.Store(0)

		if deleted, err := b.collector.EnforceRetention(b.dir, b.name, b.ext, b.maxArchived); err != nil {
			b.warn("rotalog: retention sweep failed: %v\n", err)
		} else if len(deleted) > 0 {
			b.warn("rotalog: retention deleted %d archived files\n", len(deleted))
		}

		return RotationEvent{ArchivePath: archivePath, Index: index, When: time.Now()}, nil
	}

	// No current handle, just open one
	if err := b.open(); err != nil {
		b.degraded = true
		return RotationEvent{}, &RotationError{Step: stepReopen, Path: logicalPath, Err: err}
	}
	b.rotations.Add(1)
	b.dueSince.Store(0)
	return RotationEvent{ArchivePath: "", Index: b.rotationIndex, When: time.Now()}, nil
}

// Flush syncs the handle of the presented generation to the device. A
// stale generation is rejected: the handle it targeted no longer exists,
// and syncing whatever replaced it is exactly the aliasing hazard rotation
// must avoid.
func (b *FileBackend) Flush(gen uint64) error {
	if gen != b.generation.Load() {
		return ErrStaleGeneration
	}
	if b.degraded || b.file == nil {
		return ErrBackendDegraded
	}
	if err := b.file.Sync(); err != nil {
		return fmtErrorf("failed to sync log file '%s': %w", b.Path(), err)
	}
	return nil
}

// Reinit recovers a degraded backend by opening a fresh handle at the
// logical path. Operator/supervisor policy decides when to call it; the
// backend never retries on its own.
func (b *FileBackend) Reinit() error {
	if b.file != nil {
		_ = b.file.Close()
		b.file = nil
	}
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmtErrorf("failed to create log directory '%s': %w", b.dir, err)
	}
	if err := b.open(); err != nil {
		return err
	}
	b.degraded = false
	b.duesinceRecheck()
	return nil
}

// Close syncs and closes the current handle.
func (b *FileBackend) Close() error {
	if b.file == nil {
		return nil
	}
	var finalErr error
	if err := b.file.Sync(); err != nil {
		finalErr = fmtErrorf("failed to sync log file '%s' during close: %w", b.Path(), err)
	}
	if err := b.file.Close(); err != nil {
		finalErr = combineErrors(finalErr, fmtErrorf("failed to close log file '%s': %w", b.Path(), err))
	}
	b.file = nil
	return finalErr
}

// open creates or appends the file at the logical path and resets the byte
// counter. The generation bump happens here and only here, after the
// previous handle has been fully closed: two live handles on one logical
// path can never coexist.
func (b *FileBackend) open() error {
	fullPath := b.Path()
	file, err := os.OpenFile(fullPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmtErrorf("failed to open/create log file '%s': %w", fullPath, err)
	}
	b.file = file
	b.size = 0
	if fi, errStat := file.Stat(); errStat == nil {
		b.size = fi.Size()
	}
	b.generation.Add(1)
	return nil
}

// dueSinceRecheck re-arms the due marker when a reinitialized backend
// reopened a file that is already over threshold.
func (b *FileBackend) duesinceRecheck() {
	if b.threshold > 0 && b.size >= b.threshold {
		b.dueSince.CompareAndSwap(0, time.Now().UnixNano())
	} else {
		b.dueSince.Store(0)
	}
}

func stderrWarn(format string, args ...any) {
	if len(format) < 9 || format[:9] != "rotalog: " {
		format = "rotalog: " + format
	}
	fprintfStderr(format, args...)
}
