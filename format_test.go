package rotalog

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(args ...any) Record {
	return Record{
		Flags:     FlagDefault,
		TimeStamp: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Level:     LevelInfo,
		Sequence:  42,
		Goroutine: 7,
		Args:      args,
	}
}

func TestSerializeTxt(t *testing.T) {
	s := newSerializer(time.RFC3339)

	line := string(s.serialize("txt", testRecord("hello", 123)))

	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "2025-03-14T09:26:53Z")
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "seq=42")
	assert.Contains(t, line, "tid=7")
	assert.Contains(t, line, "hello 123")
}

func TestSerializeTxtFlags(t *testing.T) {
	s := newSerializer(time.RFC3339)

	r := testRecord("bare")
	r.Flags = 0
	line := string(s.serialize("txt", r))

	assert.NotContains(t, line, "2025")
	assert.NotContains(t, line, "INFO")
	assert.Contains(t, line, "seq=42")
}

func TestSerializeJSON(t *testing.T) {
	s := newSerializer(time.RFC3339)

	data := s.serialize("json", testRecord("hello", "world", 1.5, true, nil))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "INFO", decoded["level"])
	assert.Equal(t, float64(42), decoded["seq"])
	assert.Equal(t, float64(7), decoded["tid"])
	fields, ok := decoded["fields"].([]any)
	require.True(t, ok)
	assert.Equal(t, "hello", fields[0])
	assert.Equal(t, 1.5, fields[2])
	assert.Equal(t, true, fields[3])
	assert.Nil(t, fields[4])
}

func TestSerializeJSONEscaping(t *testing.T) {
	s := newSerializer(time.RFC3339)

	data := s.serialize("json", testRecord("line1\nline2", `quote"back\slash`, "tab\there"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	fields := decoded["fields"].([]any)
	assert.Equal(t, "line1\nline2", fields[0])
	assert.Equal(t, `quote"back\slash`, fields[1])
	assert.Equal(t, "tab\there", fields[2])
}

func TestSerializeValueTypes(t *testing.T) {
	s := newSerializer(time.RFC3339)

	line := string(s.serialize("txt", testRecord(
		errors.New("boom"),
		uint64(18446744073709551615),
		time.Duration(1500*time.Millisecond),
	)))

	assert.Contains(t, line, "boom")
	assert.Contains(t, line, "18446744073709551615")
	assert.Contains(t, line, "1.5s")
}

func TestSerializeSpewFallback(t *testing.T) {
	s := newSerializer(time.RFC3339)

	type payload struct {
		A int
		B string
	}
	line := string(s.serialize("txt", testRecord(payload{A: 1, B: "two"})))

	// Structural dump carries field values
	assert.Contains(t, line, "1")
	assert.Contains(t, line, "two")
}

func TestSerializerBufferReuse(t *testing.T) {
	s := newSerializer(time.RFC3339)

	first := string(s.serialize("txt", testRecord("first")))
	second := string(s.serialize("txt", testRecord("second")))

	assert.Contains(t, first, "first")
	assert.Contains(t, second, "second")
	assert.NotContains(t, second, "first")
}

func TestLevelToString(t *testing.T) {
	assert.Equal(t, "DEBUG", levelToString(LevelDebug))
	assert.Equal(t, "INFO", levelToString(LevelInfo))
	assert.Equal(t, "WARN", levelToString(LevelWarn))
	assert.Equal(t, "ERROR", levelToString(LevelError))
	assert.Equal(t, "LEVEL(99)", levelToString(99))
}
