package compat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotalog/rotalog"
)

func newTestCore(t *testing.T) (*rotalog.Core, string) {
	t.Helper()
	dir := t.TempDir()
	sink, err := rotalog.NewBuilder().
		Directory(dir).
		Name("compat").
		AutoFlush(false).
		BuildQueued()
	require.NoError(t, err)

	cfg := rotalog.DefaultConfig()
	cfg.Level = rotalog.LevelDebug
	core := rotalog.NewCore(cfg)
	core.RegisterSink(sink)
	t.Cleanup(func() { _ = core.Close() })
	return core, dir
}

// readLog drains the pipeline and returns the log file contents.
func readLog(t *testing.T, core *rotalog.Core, dir string) string {
	t.Helper()
	require.NoError(t, core.Close())
	data, err := os.ReadFile(filepath.Join(dir, "compat.log"))
	require.NoError(t, err)
	return string(data)
}

func TestGnetAdapterLevels(t *testing.T) {
	core, dir := newTestCore(t)
	adapter := NewGnetAdapter(core)

	adapter.Debugf("debug %d", 1)
	adapter.Infof("info %d", 2)
	adapter.Warnf("warn %d", 3)
	adapter.Errorf("error %d", 4)

	out := readLog(t, core, dir)
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "info 2")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "error 4")
	assert.Contains(t, out, "gnet")
}

func TestGnetAdapterFatalHandler(t *testing.T) {
	core, dir := newTestCore(t)

	var fatalMsg string
	adapter := NewGnetAdapter(core, WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))

	adapter.Fatalf("listener %s down", "tcp")
	assert.Equal(t, "listener tcp down", fatalMsg)

	out := readLog(t, core, dir)
	assert.Contains(t, out, "listener tcp down")
	assert.Contains(t, out, "fatal")
}

func TestFastHTTPAdapterLevelDetection(t *testing.T) {
	core, dir := newTestCore(t)
	adapter := NewFastHTTPAdapter(core)

	adapter.Printf("error when serving connection %s", "1.2.3.4")
	adapter.Printf("connection warning from %s", "5.6.7.8")
	adapter.Printf("serving %d requests", 10)

	out := readLog(t, core, dir)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ERROR")
	assert.Contains(t, lines[1], "WARN")
	assert.Contains(t, lines[2], "INFO")
	assert.Contains(t, out, "fasthttp")
}

func TestFastHTTPAdapterCustomDetector(t *testing.T) {
	core, dir := newTestCore(t)
	adapter := NewFastHTTPAdapter(core,
		WithDefaultLevel(rotalog.LevelWarn),
		WithLevelDetector(func(string) int64 { return 0 }),
	)

	adapter.Printf("anything at all")

	assert.Contains(t, readLog(t, core, dir), "WARN")
}

func TestDetectLogLevel(t *testing.T) {
	assert.Equal(t, rotalog.LevelError, DetectLogLevel("failed to accept"))
	assert.Equal(t, rotalog.LevelError, DetectLogLevel("PANIC in handler"))
	assert.Equal(t, rotalog.LevelWarn, DetectLogLevel("deprecated option"))
	assert.Equal(t, rotalog.LevelDebug, DetectLogLevel("trace: enter"))
	assert.Equal(t, rotalog.LevelInfo, DetectLogLevel("server started"))
}

func TestBuilderWithOwnCore(t *testing.T) {
	dir := t.TempDir()
	cfg := rotalog.DefaultConfig()
	cfg.Directory = dir
	cfg.Name = "owned"
	cfg.AutoFlush = false

	b := NewBuilder().WithConfig(cfg)
	gnetAdapter, err := b.BuildGnet()
	require.NoError(t, err)
	fasthttpAdapter, err := b.BuildFastHTTP()
	require.NoError(t, err)

	// Both adapters share the one core the builder created
	gnetAdapter.Infof("from gnet")
	fasthttpAdapter.Printf("from fasthttp")
	require.NoError(t, b.Close())

	data, err := os.ReadFile(filepath.Join(dir, "owned.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "from gnet")
	assert.Contains(t, string(data), "from fasthttp")
}

func TestBuilderWithProvidedCore(t *testing.T) {
	core, dir := newTestCore(t)

	b := NewBuilder().WithCore(core)
	adapter, err := b.BuildGnet()
	require.NoError(t, err)

	adapter.Infof("through shared core")

	// Closing the builder must not tear down a core it does not own
	require.NoError(t, b.Close())
	adapter.Infof("still alive")

	out := readLog(t, core, dir)
	assert.Contains(t, out, "through shared core")
	assert.Contains(t, out, "still alive")
}

func TestBuilderNilCore(t *testing.T) {
	_, err := NewBuilder().WithCore(nil).BuildGnet()
	assert.Error(t, err)
}
