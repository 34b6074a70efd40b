// Package otel provides structured observability for forager.
//
// Events are typed records written as JSONL through zerolog. Writes go
// through a non-blocking diode writer so the UI loop never waits on disk.
// An optional RingBuffer keeps recent events in memory for the debug overlay.
package otel

import (
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Lifecycle events
	KindLifecycleAction EventKind = "lifecycle.action"
	KindClusterStatus   EventKind = "lifecycle.cluster"
	KindIndexStatus     EventKind = "lifecycle.index"
	KindPollError       EventKind = "lifecycle.poll_error"

	// Session events
	KindModeChange    EventKind = "session.mode"
	KindModeIgnored   EventKind = "session.mode_ignored"
	KindToggle        EventKind = "session.toggle"
	KindStackLoad     EventKind = "session.stack_load"
	KindStackRejected EventKind = "session.stack_rejected"
	KindSelect        EventKind = "session.select"
	KindSelectIgnored EventKind = "session.select_ignored"
	KindClear         EventKind = "session.clear"
	KindExport        EventKind = "session.export"
	KindWorkspace     EventKind = "session.workspace"

	// Fetch events
	KindFetchStart    EventKind = "fetch.start"
	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"
	KindFetchStale    EventKind = "fetch.stale"
	KindEmbedStart    EventKind = "embed.start"
	KindEmbedComplete EventKind = "embed.complete"
	KindEmbedError    EventKind = "embed.error"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind is
// optional; Time is filled in by the Logger when zero.
type Event struct {
	Time      time.Time
	Level     Level
	Kind      EventKind
	Comp      string // component: "session", "coord", "ui", "main"
	SessionID string
	Dataset   string
	Value     string // mode token, flag value, status name
	Count     int
	Dur       time.Duration
	Err       string
	Msg       string
	Extra     map[string]any
}
