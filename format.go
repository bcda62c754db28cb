package rotalog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// serializer manages the buffered encoding of records. It reuses one
// backing buffer and is therefore only safe under the owning sink's
// exclusion discipline (the direct sink's lock, or being the queued
// sink's consumer goroutine).
type serializer struct {
	buf             []byte
	timestampFormat string
}

// newSerializer creates a serializer instance.
func newSerializer(timestampFormat string) *serializer {
	if timestampFormat == "" {
		timestampFormat = time.RFC3339Nano
	}
	return &serializer{
		buf:             make([]byte, 0, 4096),
		timestampFormat: timestampFormat,
	}
}

// reset clears the serializer buffer for reuse.
func (s *serializer) reset() {
	s.buf = s.buf[:0]
}

// serialize converts a record to the configured format, JSON or (default) txt.
// The returned slice aliases the internal buffer and is only valid until the
// next serialize call.
func (s *serializer) serialize(format string, r Record) []byte {
	s.reset()
	if format == "json" {
		return s.serializeJSON(r)
	}
	return s.serializeTxt(r)
}

// serializeTxt formats a record as plain txt: time, level, seq, goroutine id,
// then the argument fields.
func (s *serializer) serializeTxt(r Record) []byte {
	needsSpace := false

	if r.Flags&FlagShowTimestamp != 0 {
		s.buf = r.TimeStamp.AppendFormat(s.buf, s.timestampFormat)
		needsSpace = true
	}

	if r.Flags&FlagShowLevel != 0 {
		if needsSpace {
			s.buf = append(s.buf, ' ')
		}
		s.buf = append(s.buf, levelToString(r.Level)...)
		needsSpace = true
	}

	if needsSpace {
		s.buf = append(s.buf, ' ')
	}
	s.buf = append(s.buf, "seq="...)
	s.buf = strconv.AppendUint(s.buf, r.Sequence, 10)
	s.buf = append(s.buf, " tid="...)
	s.buf = strconv.AppendUint(s.buf, r.Goroutine, 10)

	for _, arg := range r.Args {
		s.buf = append(s.buf, ' ')
		s.writeTxtValue(arg)
	}

	s.buf = append(s.buf, '\n')
	return s.buf
}

// serializeJSON formats a record as a single JSON object.
func (s *serializer) serializeJSON(r Record) []byte {
	s.buf = append(s.buf, '{')

	if r.Flags&FlagShowTimestamp != 0 {
		s.buf = append(s.buf, `"time":"`...)
		s.buf = r.TimeStamp.AppendFormat(s.buf, s.timestampFormat)
		s.buf = append(s.buf, `",`...)
	}

	if r.Flags&FlagShowLevel != 0 {
		s.buf = append(s.buf, `"level":"`...)
		s.buf = append(s.buf, levelToString(r.Level)...)
		s.buf = append(s.buf, `",`...)
	}

	s.buf = append(s.buf, `"seq":`...)
	s.buf = strconv.AppendUint(s.buf, r.Sequence, 10)
	s.buf = append(s.buf, `,"tid":`...)
	s.buf = strconv.AppendUint(s.buf, r.Goroutine, 10)

	if len(r.Args) > 0 {
		s.buf = append(s.buf, `,"fields":[`...)
		for i, arg := range r.Args {
			if i > 0 {
				s.buf = append(s.buf, ',')
			}
			s.writeJSONValue(arg)
		}
		s.buf = append(s.buf, ']')
	}

	s.buf = append(s.buf, '}', '\n')
	return s.buf
}

// writeTxtValue converts any value to its txt representation.
// Types without an explicit case fall back to go-spew for a compact,
// deterministic structural dump.
func (s *serializer) writeTxtValue(v any) {
	switch val := v.(type) {
	case string:
		s.buf = append(s.buf, val...)
	case int:
		s.buf = strconv.AppendInt(s.buf, int64(val), 10)
	case int64:
		s.buf = strconv.AppendInt(s.buf, val, 10)
	case uint:
		s.buf = strconv.AppendUint(s.buf, uint64(val), 10)
	case uint64:
		s.buf = strconv.AppendUint(s.buf, val, 10)
	case float32:
		s.buf = strconv.AppendFloat(s.buf, float64(val), 'f', -1, 32)
	case float64:
		s.buf = strconv.AppendFloat(s.buf, val, 'f', -1, 64)
	case bool:
		s.buf = strconv.AppendBool(s.buf, val)
	case nil:
		s.buf = append(s.buf, "null"...)
	case time.Time:
		s.buf = val.AppendFormat(s.buf, s.timestampFormat)
	case time.Duration:
		s.buf = append(s.buf, val.String()...)
	case error:
		s.writeQuotable(val.Error())
	case fmt.Stringer:
		s.writeQuotable(val.String())
	default:
		var b bytes.Buffer
		dumper := &spew.ConfigState{
			Indent:                  " ",
			MaxDepth:                10,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		dumper.Fdump(&b, val)
		s.buf = append(s.buf, bytes.TrimSpace(b.Bytes())...)
	}
}

// writeQuotable appends str, quoting it when it is empty or contains spaces.
func (s *serializer) writeQuotable(str string) {
	if len(str) == 0 || strings.ContainsRune(str, ' ') {
		s.buf = append(s.buf, '"')
		s.writeString(str)
		s.buf = append(s.buf, '"')
	} else {
		s.buf = append(s.buf, str...)
	}
}

// writeJSONValue converts any value to its JSON representation.
func (s *serializer) writeJSONValue(v any) {
	switch val := v.(type) {
	case string:
		s.buf = append(s.buf, '"')
		s.writeString(val)
		s.buf = append(s.buf, '"')
	case int:
		s.buf = strconv.AppendInt(s.buf, int64(val), 10)
	case int64:
		s.buf = strconv.AppendInt(s.buf, val, 10)
	case uint:
		s.buf = strconv.AppendUint(s.buf, uint64(val), 10)
	case uint64:
		s.buf = strconv.AppendUint(s.buf, val, 10)
	case float32:
		s.buf = strconv.AppendFloat(s.buf, float64(val), 'f', -1, 32)
	case float64:
		s.buf = strconv.AppendFloat(s.buf, val, 'f', -1, 64)
	case bool:
		s.buf = strconv.AppendBool(s.buf, val)
	case nil:
		s.buf = append(s.buf, "null"...)
	case time.Time:
		s.buf = append(s.buf, '"')
		s.buf = val.AppendFormat(s.buf, s.timestampFormat)
		s.buf = append(s.buf, '"')
	case error:
		s.buf = append(s.buf, '"')
		s.writeString(val.Error())
		s.buf = append(s.buf, '"')
	case fmt.Stringer:
		s.buf = append(s.buf, '"')
		s.writeString(val.String())
		s.buf = append(s.buf, '"')
	default:
		s.buf = append(s.buf, '"')
		s.writeString(fmt.Sprintf("%+v", val))
		s.buf = append(s.buf, '"')
	}
}

const hexChars = "0123456789abcdef"

// writeString appends a string to the buffer, escaping JSON special characters.
func (s *serializer) writeString(str string) {
	lenStr := len(str)
	for i := 0; i < lenStr; {
		if c := str[i]; c < ' ' || c == '"' || c == '\\' {
			switch c {
			case '\\', '"':
				s.buf = append(s.buf, '\\', c)
			case '\n':
				s.buf = append(s.buf, '\\', 'n')
			case '\r':
				s.buf = append(s.buf, '\\', 'r')
			case '\t':
				s.buf = append(s.buf, '\\', 't')
			case '\b':
				s.buf = append(s.buf, '\\', 'b')
			case '\f':
				s.buf = append(s.buf, '\\', 'f')
			default:
				s.buf = append(s.buf, `\u00`...)
				s.buf = append(s.buf, hexChars[c>>4], hexChars[c&0xF])
			}
			i++
		} else {
			start := i
			for i < lenStr && str[i] >= ' ' && str[i] != '"' && str[i] != '\\' {
				i++
			}
			s.buf = append(s.buf, str[start:i]...)
		}
	}
}

func levelToString(level int64) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
