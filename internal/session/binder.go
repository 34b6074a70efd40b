package session

import (
	"errors"
	"fmt"

	"github.com/abelbrown/forager/internal/engine"
)

var (
	// ErrStackRejected wraps an engine refusal of a stack load.
	ErrStackRejected = errors.New("session: image stack rejected")
	// ErrFrameOutOfRange is returned for a selection outside the loaded stack.
	ErrFrameOutOfRange = errors.New("session: frame index out of range")
)

// SelectionEvent is emitted by an image view when the user clicks an entry.
// FrameIndex is the entry's idx as reported by the backend.
type SelectionEvent struct {
	FrameIndex int
}

// Binder installs ordered image stacks into the engine and keeps view
// selections within the most recently loaded stack.
type Binder struct {
	eng     engine.Engine
	records []engine.ImageRecord
}

// NewBinder returns a binder with no stack loaded.
func NewBinder(eng engine.Engine) *Binder {
	return &Binder{eng: eng}
}

// LoadStack replaces the engine's working set with one record per location,
// in order. On rejection the previous stack stays in place. Mode, flags and
// frame position are left alone.
func (b *Binder) LoadStack(locations []string) error {
	records := make([]engine.ImageRecord, len(locations))
	for i, loc := range locations {
		records[i] = engine.ImageRecord{SourceLocation: loc}
	}
	if err := b.eng.LoadImageStack(records); err != nil {
		return fmt.Errorf("%w: %w", ErrStackRejected, err)
	}
	b.records = records
	return nil
}

// Len returns the size of the loaded stack.
func (b *Binder) Len() int { return len(b.records) }

// Record returns the record at frame index i.
func (b *Binder) Record(i int) (engine.ImageRecord, bool) {
	if i < 0 || i >= len(b.records) {
		return engine.ImageRecord{}, false
	}
	return b.records[i], true
}

// Select moves the engine to the selected frame.
func (b *Binder) Select(ev SelectionEvent) error {
	if ev.FrameIndex < 0 || ev.FrameIndex >= len(b.records) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, ev.FrameIndex, len(b.records))
	}
	b.eng.SetCurrentFrameNum(ev.FrameIndex)
	return nil
}
