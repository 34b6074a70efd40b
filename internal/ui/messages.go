// Package ui provides the Bubble Tea TUI for a labeling session.
package ui

import (
	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/lifecycle"
)

// LifecycleMsg carries one fact for the lifecycle reducer.
type LifecycleMsg struct {
	Action lifecycle.Action
}

// PollError is sent when a status poll fails. Target names what was polled.
type PollError struct {
	Target string
	Err    error
}

// ActionFailed is sent when a user-triggered backend call fails.
type ActionFailed struct {
	Op  string
	Err error
}

// StackFetched is sent when a dataset's image locations arrive. Gen is the
// request generation the fetch was issued under.
type StackFetched struct {
	Dataset string
	Gen     uint64
	Paths   []string
	Err     error
}

// ResultsFetched is sent when an image view's list arrives. Gen is the
// request generation the fetch was issued under.
type ResultsFetched struct {
	Dataset string
	Gen     uint64
	Entries []backend.ImageEntry
	Err     error
}

// EmbeddingFetched is sent when a caption embedding request settles.
type EmbeddingFetched struct {
	Text      string
	Embedding string
	Err       error
}
