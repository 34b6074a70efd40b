package session

import (
	"errors"
	"fmt"

	"github.com/abelbrown/forager/internal/engine"
)

// Mode tokens as offered by the mode select control.
const (
	TokenTwoPoints     = "box_two_points"
	TokenExtremePoints = "box_extreme_points"
	TokenPoint         = "point"
	TokenPerFrame      = "per_frame"
)

// ModeTokens lists the selectable tokens in display order.
var ModeTokens = []string{TokenTwoPoints, TokenExtremePoints, TokenPoint, TokenPerFrame}

// Toggle flag names.
const (
	FlagExtremePoints = "extreme-points-visibility"
	FlagLetterbox     = "letterbox-view"
	FlagSound         = "sound"
)

// FlagNames lists the toggle flags in display order.
var FlagNames = []string{FlagExtremePoints, FlagLetterbox, FlagSound}

// ErrUnknownFlag is returned by Toggle for a name outside FlagNames.
// Callers treat it as ignored input.
var ErrUnknownFlag = errors.New("session: unknown toggle flag")

// PerFrameCategories is installed together with ModePerFrameCategory.
func PerFrameCategories() engine.Categories {
	return engine.Categories{
		"true":  {Idx: 1, Color: "#67bf5c"},
		"false": {Idx: 2, Color: "#ed665d"},
	}
}

// ModeOutcome reports whether SetMode changed the active mode.
type ModeOutcome int

const (
	ModeUnchanged ModeOutcome = iota
	ModeChanged
)

func (o ModeOutcome) String() string {
	if o == ModeChanged {
		return "changed"
	}
	return "unchanged"
}

// ParseMode maps a control token to its annotation mode.
func ParseMode(token string) (engine.Mode, bool) {
	switch token {
	case TokenTwoPoints:
		return engine.ModeTwoPointsBBox, true
	case TokenExtremePoints:
		return engine.ModeExtremePointsBBox, true
	case TokenPoint:
		return engine.ModePoint, true
	case TokenPerFrame:
		return engine.ModePerFrameCategory, true
	}
	return 0, false
}

// TokenFor is the inverse of ParseMode.
func TokenFor(mode engine.Mode) string {
	switch mode {
	case engine.ModeTwoPointsBBox:
		return TokenTwoPoints
	case engine.ModeExtremePointsBBox:
		return TokenExtremePoints
	case engine.ModePoint:
		return TokenPoint
	case engine.ModePerFrameCategory:
		return TokenPerFrame
	}
	return ""
}

// ToggleFlag is a named boolean engine setting with its control label pair.
// Controls render from this record; they hold no state of their own.
type ToggleFlag struct {
	Name    string
	Value   bool
	OnText  string
	OffText string
}

// Label is the text the control shows for the current value.
func (f ToggleFlag) Label() string {
	if f.Value {
		return f.OnText
	}
	return f.OffText
}

// Coordinator owns the active mode and the toggle flags and is the only path
// by which they reach the engine.
type Coordinator struct {
	eng   engine.Engine
	mode  engine.Mode
	flags map[string]*ToggleFlag
}

// NewCoordinator returns a coordinator with the initial flag values. The
// engine is not touched until Start.
func NewCoordinator(eng engine.Engine) *Coordinator {
	return &Coordinator{
		eng:  eng,
		mode: engine.ModeExtremePointsBBox,
		flags: map[string]*ToggleFlag{
			FlagExtremePoints: {Name: FlagExtremePoints, Value: true, OnText: "Hide Extreme Points", OffText: "Show Extreme Points"},
			FlagLetterbox:     {Name: FlagLetterbox, Value: true, OnText: "Use Scaled View", OffText: "Use Letterbox View"},
			FlagSound:         {Name: FlagSound, Value: false, OnText: "Mute Sound", OffText: "Play Sound"},
		},
	}
}

// Start pushes every flag and the initial mode to the engine.
func (c *Coordinator) Start() {
	for _, name := range FlagNames {
		c.push(*c.flags[name])
	}
	c.eng.SetAnnotationMode(c.mode)
}

// Mode returns the active annotation mode.
func (c *Coordinator) Mode() engine.Mode { return c.mode }

// SetMode switches to the mode named by token. Unknown tokens leave the mode
// unchanged.
func (c *Coordinator) SetMode(token string) ModeOutcome {
	mode, ok := ParseMode(token)
	if !ok {
		return ModeUnchanged
	}
	switch mode {
	case engine.ModePerFrameCategory:
		c.eng.SetCategories(PerFrameCategories())
		c.eng.SetAnnotationMode(mode)
	case engine.ModeTwoPointsBBox, engine.ModeExtremePointsBBox, engine.ModePoint:
		c.eng.SetAnnotationMode(mode)
	}
	c.mode = mode
	return ModeChanged
}

// Flag returns a copy of the named flag.
func (c *Coordinator) Flag(name string) (ToggleFlag, bool) {
	f, ok := c.flags[name]
	if !ok {
		return ToggleFlag{}, false
	}
	return *f, true
}

// Flags returns copies of all flags in display order.
func (c *Coordinator) Flags() []ToggleFlag {
	out := make([]ToggleFlag, 0, len(FlagNames))
	for _, name := range FlagNames {
		out = append(out, *c.flags[name])
	}
	return out
}

// Toggle negates the named flag, pushes it to the engine and returns the new
// record.
func (c *Coordinator) Toggle(name string) (ToggleFlag, error) {
	f, ok := c.flags[name]
	if !ok {
		return ToggleFlag{}, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
	}
	f.Value = !f.Value
	c.push(*f)
	return *f, nil
}

func (c *Coordinator) push(f ToggleFlag) {
	switch f.Name {
	case FlagExtremePoints:
		c.eng.SetExtremePointsVisualization(f.Value)
	case FlagLetterbox:
		c.eng.SetLetterboxView(f.Value)
	case FlagSound:
		c.eng.SetPlayAudio(f.Value)
	}
}

// ClearAnnotations discards every stored annotation. There is no undo.
func (c *Coordinator) ClearAnnotations() {
	c.eng.ClearBoxes()
}

// ExportAnnotations reads the engine's annotation set without mutating it.
func (c *Coordinator) ExportAnnotations() engine.Annotations {
	return c.eng.GetAnnotations()
}
