package compat

import (
	"fmt"
	"os"
	"time"

	gnetlog "github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/rotalog/rotalog"
)

// GnetAdapter wraps a rotalog.Core to implement gnet's logging.Logger interface
type GnetAdapter struct {
	core         *rotalog.Core
	fatalHandler func(msg string) // Customizable fatal behavior
}

var _ gnetlog.Logger = (*GnetAdapter)(nil)

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(core *rotalog.Core, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		core: core,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting
func (a *GnetAdapter) Debugf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.core.Debug("msg", msg, "source", "gnet")
}

// Infof logs at info level with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.core.Info("msg", msg, "source", "gnet")
}

// Warnf logs at warn level with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.core.Warn("msg", msg, "source", "gnet")
}

// Errorf logs at error level with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.core.Error("msg", msg, "source", "gnet")
}

// Fatalf logs at error level and triggers fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.core.Error("msg", msg, "source", "gnet", "fatal", true)

	// Ensure log is flushed before exit
	_ = a.core.Flush(100 * time.Millisecond)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
