package otel

import (
	"os"
	"strconv"
	"sync/atomic"
)

// FORAGER_TRACE adds one debug event per UI message and per routed key.
// It is read once at startup.
var tracing atomic.Bool

func init() {
	tracing.Store(traceSetting(os.Getenv("FORAGER_TRACE")))
}

// traceSetting reads the env value. Boolean spellings are honored and any
// other non-empty value turns tracing on.
func traceSetting(v string) bool {
	if v == "" {
		return false
	}
	if on, err := strconv.ParseBool(v); err == nil {
		return on
	}
	return true
}

// TraceEnabled reports whether trace events are recorded.
func TraceEnabled() bool { return tracing.Load() }

// Trace emits e at debug level when tracing is on.
func (l *Logger) Trace(e Event) {
	if !tracing.Load() {
		return
	}
	e.Level = LevelDebug
	l.Emit(e)
}
