package rotalog

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderConfig(t *testing.T) {
	cfg := NewBuilder().
		Name("svc").
		Directory("/tmp/svc-logs").
		Extension("txt").
		Format("json").
		Level(LevelError).
		RotationThresholdKB(500).
		MaxArchivedFiles(7).
		AutoFlush(false).
		QueueCapacity(256).
		BackpressurePolicy(PolicyDrop).
		EnqueueTimeoutMs(100).
		DrainTimeoutMs(500).
		WatchdogIntervalMs(1000).
		WatchdogGracePeriodMs(3000).
		Config()

	assert.Equal(t, "svc", cfg.Name)
	assert.Equal(t, "/tmp/svc-logs", cfg.Directory)
	assert.Equal(t, "txt", cfg.Extension)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, LevelError, cfg.Level)
	assert.Equal(t, int64(500), cfg.RotationThresholdKB)
	assert.Equal(t, int64(7), cfg.MaxArchivedFiles)
	assert.False(t, cfg.AutoFlush)
	assert.Equal(t, int64(256), cfg.QueueCapacity)
	assert.Equal(t, PolicyDrop, cfg.BackpressurePolicy)
	assert.Equal(t, int64(100), cfg.EnqueueTimeoutMs)
	assert.Equal(t, int64(500), cfg.DrainTimeoutMs)
	assert.Equal(t, int64(1000), cfg.WatchdogIntervalMs)
	assert.Equal(t, int64(3000), cfg.WatchdogGracePeriodMs)
}

func TestBuilderLevelString(t *testing.T) {
	cfg := NewBuilder().LevelString("error").Config()
	assert.Equal(t, LevelError, cfg.Level)

	_, err := NewBuilder().LevelString("loud").BuildDirect()
	assert.Error(t, err)
}

func TestBuilderDeferredValidation(t *testing.T) {
	_, err := NewBuilder().Format("xml").Directory(t.TempDir()).BuildDirect()
	assert.Error(t, err)

	_, err = NewBuilder().QueueCapacity(-1).Directory(t.TempDir()).BuildQueued()
	assert.Error(t, err)
}

func TestBuilderBuildDirect(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewBuilder().
		Directory(dir).
		Name("direct").
		RotationThresholdKB(1).
		AutoFlush(false).
		BuildDirect()
	require.NoError(t, err)

	require.NoError(t, sink.Emit(newRecord(LevelInfo, "built")))
	require.NoError(t, sink.Close())

	lines := readAllLines(t, dir)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "built")
}

func TestBuilderBuildQueuedWithObserver(t *testing.T) {
	dir := t.TempDir()
	var rotations atomic.Uint64
	sink, err := NewBuilder().
		Directory(dir).
		Name("queued").
		RotationThresholdKB(1).
		AutoFlush(false).
		OnRotation(func(RotationEvent) { rotations.Add(1) }).
		BuildQueued()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Emit(newRecord(LevelInfo, strings.Repeat("x", 1100))))
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, uint64(3), rotations.Load()+sink.MissedRotationEvents())
}
