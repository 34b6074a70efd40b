// Package engine defines the annotation engine capability set the labeling
// session drives, plus Memory, a terminal implementation of it.
package engine

import "errors"

// Mode is how the engine interprets pointer input on the canvas.
type Mode int

const (
	ModeTwoPointsBBox Mode = iota
	ModeExtremePointsBBox
	ModePoint
	ModePerFrameCategory
)

func (m Mode) String() string {
	switch m {
	case ModeTwoPointsBBox:
		return "two-points box"
	case ModeExtremePointsBBox:
		return "extreme-points box"
	case ModePoint:
		return "point"
	case ModePerFrameCategory:
		return "per-frame category"
	default:
		return "unknown"
	}
}

// Canvas identifies the drawing surface handed to Init.
type Canvas struct {
	ID     string
	Width  int
	Height int
}

// ImageRecord is one frame of the working image set. Its position in the
// slice passed to LoadImageStack is its frame index.
type ImageRecord struct {
	SourceLocation string
}

// Category is a per-frame label with its display color.
type Category struct {
	Idx   int    `json:"idx"`
	Color string `json:"color"`
}

// Categories maps category names to their index and color.
type Categories map[string]Category

// Engine is the capability set of an annotation engine.
//
// Implementations are driven from a single goroutine (the UI event loop)
// and need not be safe for concurrent use.
type Engine interface {
	Init(canvas Canvas) error
	// LoadImageStack replaces the working set. On error the previous working
	// set must remain in effect.
	LoadImageStack(records []ImageRecord) error
	SetCurrentFrameNum(index int)
	SetAnnotationMode(mode Mode)
	SetCategories(categories Categories)
	SetExtremePointsVisualization(visible bool)
	SetLetterboxView(letterbox bool)
	SetPlayAudio(play bool)
	ClearBoxes()
	GetAnnotations() Annotations
	HandleKeyDown(ev *KeyEvent)
	HandleKeyUp(ev *KeyEvent)
}

// Renderer is implemented by engines that can draw their canvas as text.
type Renderer interface {
	Render(width, height int) string
}

var (
	// ErrEmptyStack is returned when an empty image stack is loaded.
	ErrEmptyStack = errors.New("engine: empty image stack")
	// ErrInvalidRecord is returned for a record with no source location.
	ErrInvalidRecord = errors.New("engine: image record has no source location")
	// ErrNotInitialized is returned when the engine is used before Init.
	ErrNotInitialized = errors.New("engine: not initialized")
)
