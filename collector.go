package rotalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Collector is the pure rotation policy: it names archives and enforces the
// retention limit. ArchiveName performs no I/O and is deterministic for
// equal inputs, so it can be tested without a filesystem.
type Collector interface {
	ArchiveName(name, ext string, index uint64, ts time.Time) string
	EnforceRetention(dir, name, ext string, maxFiles int) ([]string, error)
}

// TimestampCollector names archives with the rotation timestamp plus the
// rotation index, and deletes the oldest archives beyond the retention
// limit. The active file is identified by exact name and is never a
// deletion candidate.
type TimestampCollector struct {
	// Warn receives non-fatal retention problems. Nil disables reporting.
	Warn func(format string, args ...any)
}

// ArchiveName creates the archived filename for one rotation. The index
// disambiguates rotations that land on the same timestamp, so repeated
// rotations with no bytes written never collide.
func (c *TimestampCollector) ArchiveName(name, ext string, index uint64, ts time.Time) string {
	tsFormat := ts.Format("060102_150405")
	nano := ts.Nanosecond()

	if ext != "" {
		return fmt.Sprintf("%s_%s_%09d_%d.%s", name, tsFormat, nano, index, ext)
	}
	return fmt.Sprintf("%s_%s_%09d_%d", name, tsFormat, nano, index)
}

// EnforceRetention deletes the oldest archived files beyond maxFiles and
// returns the deleted paths. maxFiles <= 0 disables retention. Deletion
// failures are reported through Warn and do not abort the sweep.
func (c *TimestampCollector) EnforceRetention(dir, name, ext string, maxFiles int) ([]string, error) {
	if maxFiles <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErrorf("failed to read log directory '%s' for retention: %w", dir, err)
	}

	activeName := name
	if ext != "" {
		activeName = name + "." + ext
	}

	type archiveMeta struct {
		name    string
		modTime time.Time
	}
	var archives []archiveMeta
	prefix := name + "_"
	targetExt := "." + ext
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == activeName {
			continue
		}
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if ext != "" && filepath.Ext(entry.Name()) != targetExt {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		archives = append(archives, archiveMeta{name: entry.Name(), modTime: info.ModTime()})
	}

	if len(archives) <= maxFiles {
		return nil, nil
	}

	// Oldest first; tie-break on name so same-second archives sort by index
	sort.Slice(archives, func(i, j int) bool {
		if archives[i].modTime.Equal(archives[j].modTime) {
			return archives[i].name < archives[j].name
		}
		return archives[i].modTime.Before(archives[j].modTime)
	})

	var deleted []string
	for _, a := range archives[:len(archives)-maxFiles] {
		path := filepath.Join(dir, a.name)
		if err := os.Remove(path); err != nil {
			c.warn("failed to remove archived log file '%s': %v\n", path, err)
			continue
		}
		deleted = append(deleted, path)
	}
	return deleted, nil
}

func (c *TimestampCollector) warn(format string, args ...any) {
	if c.Warn != nil {
		c.Warn(format, args...)
	}
}
