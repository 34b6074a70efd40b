package otel

// Goroutine safety:
// zerolog serializes each event into the diode writer, whose poller goroutine
// is the sole writer to the destination. Logger.mu protects only the ring
// buffer pointer. The ring buffer's own mu handles concurrent Push/Snapshot.

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

const (
	// writerBufferSize is the capacity of the diode ring between Emit and disk.
	writerBufferSize = 4096

	// writerPollInterval is how often the diode poller checks for new lines.
	writerPollInterval = 10 * time.Millisecond
)

// Logger writes events as JSONL via zerolog over a non-blocking writer.
// Goroutine-safe. A nil *Logger discards everything.
type Logger struct {
	mu        sync.Mutex
	buf       *RingBuffer // nil until SetRingBuffer
	sessionID string
	zl        zerolog.Logger
	out       diode.Writer
	dropped   atomic.Uint64 // lines the diode overwrote before they reached disk
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w. Events below minLevel are
// kept in the ring buffer but not written. Call Close() to flush.
func NewLogger(w io.Writer, minLevel Level) *Logger {
	l := &Logger{sessionID: uuid.NewString()}
	l.out = diode.NewWriter(w, writerBufferSize, writerPollInterval, func(missed int) {
		l.dropped.Add(uint64(missed))
	})
	l.zl = zerolog.New(l.out).
		Level(zerologLevel(minLevel)).
		With().Str("session_id", l.sessionID).
		Logger()
	return l
}

// NewNullLogger creates a Logger that discards output.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard, LevelError)
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s)
	default:
		return LevelInfo
	}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SessionID returns the id stamped on every event of this run.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Emit records an event. Sets Time (if zero) and SessionID. Events emitted
// after Close are counted as dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	e.SessionID = l.sessionID

	l.mu.Lock()
	rb := l.buf
	l.mu.Unlock()
	if rb != nil {
		rb.Push(e)
	}

	zev := l.zl.WithLevel(zerologLevel(e.Level))
	if zev == nil {
		return
	}
	zev = zev.Time("t", e.Time).Str("kind", string(e.Kind))
	if e.Comp != "" {
		zev = zev.Str("comp", e.Comp)
	}
	if e.Dataset != "" {
		zev = zev.Str("dataset", e.Dataset)
	}
	if e.Value != "" {
		zev = zev.Str("value", e.Value)
	}
	if e.Count != 0 {
		zev = zev.Int("count", e.Count)
	}
	if e.Dur > 0 {
		zev = zev.Float64("dur_ms", float64(e.Dur)/float64(time.Millisecond))
	}
	if e.Err != "" {
		zev = zev.Str("err", e.Err)
	}
	if len(e.Extra) > 0 {
		zev = zev.Fields(e.Extra)
	}
	zev.Msg(e.Msg)
}

// Debug emits a debug-level event.
func (l *Logger) Debug(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelDebug, Kind: kind, Comp: comp, Msg: msg})
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. Nil err is safe (logged as empty string).
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = buf
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending lines and stops the writer goroutine, reporting
// dropped events to stderr. Safe to call more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		_ = l.out.Close()

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "forager: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
