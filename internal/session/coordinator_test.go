package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/abelbrown/forager/internal/engine"
)

func TestCoordinatorStartInformsEngine(t *testing.T) {
	eng := &recordingEngine{}
	c := NewCoordinator(eng)
	c.Start()

	want := []string{
		"SetExtremePointsVisualization(true)",
		"SetLetterboxView(true)",
		"SetPlayAudio(false)",
		"SetAnnotationMode(extreme-points box)",
	}
	if !reflect.DeepEqual(eng.calls, want) {
		t.Errorf("calls = %v, want %v", eng.calls, want)
	}
}

func TestSetModePerFrameInstallsCategoriesWithMode(t *testing.T) {
	eng := &recordingEngine{}
	c := NewCoordinator(eng)

	if out := c.SetMode(TokenPerFrame); out != ModeChanged {
		t.Fatalf("outcome = %v, want changed", out)
	}
	if eng.mode != engine.ModePerFrameCategory {
		t.Errorf("engine mode = %v", eng.mode)
	}
	want := engine.Categories{
		"true":  {Idx: 1, Color: "#67bf5c"},
		"false": {Idx: 2, Color: "#ed665d"},
	}
	if !reflect.DeepEqual(eng.categories, want) {
		t.Errorf("categories = %v, want %v", eng.categories, want)
	}
	// Both capability calls belong to the single SetMode call.
	if len(eng.calls) != 2 {
		t.Errorf("calls = %v, want categories and mode together", eng.calls)
	}
}

func TestSetModeOtherModesLeaveCategories(t *testing.T) {
	tests := []struct {
		token string
		mode  engine.Mode
	}{
		{TokenTwoPoints, engine.ModeTwoPointsBBox},
		{TokenExtremePoints, engine.ModeExtremePointsBBox},
		{TokenPoint, engine.ModePoint},
	}
	for _, tt := range tests {
		eng := &recordingEngine{}
		c := NewCoordinator(eng)
		if out := c.SetMode(tt.token); out != ModeChanged {
			t.Errorf("%s: outcome = %v", tt.token, out)
		}
		if eng.mode != tt.mode || c.Mode() != tt.mode {
			t.Errorf("%s: mode = %v/%v, want %v", tt.token, eng.mode, c.Mode(), tt.mode)
		}
		if eng.categories != nil {
			t.Errorf("%s: categories installed: %v", tt.token, eng.categories)
		}
	}
}

func TestSetModeUnknownTokenUnchanged(t *testing.T) {
	eng := &recordingEngine{}
	c := NewCoordinator(eng)
	c.SetMode(TokenPoint)
	eng.calls = nil

	for _, token := range []string{"", "polygon", "PER_FRAME", "point "} {
		if out := c.SetMode(token); out != ModeUnchanged {
			t.Errorf("SetMode(%q) = %v, want unchanged", token, out)
		}
	}
	if c.Mode() != engine.ModePoint {
		t.Errorf("mode = %v, want POINT", c.Mode())
	}
	if len(eng.calls) != 0 {
		t.Errorf("engine touched: %v", eng.calls)
	}
}

func TestToggleTwiceRestoresFlagAndLabel(t *testing.T) {
	for _, name := range FlagNames {
		eng := &recordingEngine{}
		c := NewCoordinator(eng)
		before, _ := c.Flag(name)

		mid, err := c.Toggle(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if mid.Value == before.Value || mid.Label() == before.Label() {
			t.Errorf("%s: first toggle did not flip: %+v", name, mid)
		}

		after, _ := c.Toggle(name)
		if after.Value != before.Value {
			t.Errorf("%s: value = %t, want %t", name, after.Value, before.Value)
		}
		if after.Label() != before.Label() {
			t.Errorf("%s: label = %q, want %q", name, after.Label(), before.Label())
		}
		if len(eng.calls) != 2 {
			t.Errorf("%s: engine calls = %v, want 2", name, eng.calls)
		}
	}
}

func TestTogglePushesToMatchingCapability(t *testing.T) {
	eng := &recordingEngine{extreme: true, letterbox: true}
	c := NewCoordinator(eng)

	c.Toggle(FlagExtremePoints)
	c.Toggle(FlagLetterbox)
	c.Toggle(FlagSound)

	if eng.extreme || eng.letterbox || !eng.audio {
		t.Errorf("engine flags = extreme:%t letterbox:%t audio:%t", eng.extreme, eng.letterbox, eng.audio)
	}
	f, _ := c.Flag(FlagSound)
	if f.Label() != "Mute Sound" {
		t.Errorf("sound label = %q", f.Label())
	}
}

func TestToggleUnknownFlag(t *testing.T) {
	eng := &recordingEngine{}
	c := NewCoordinator(eng)

	_, err := c.Toggle("grayscale")
	if !errors.Is(err, ErrUnknownFlag) {
		t.Errorf("err = %v, want ErrUnknownFlag", err)
	}
	if len(eng.calls) != 0 {
		t.Errorf("engine touched: %v", eng.calls)
	}
}

func TestInitialLabels(t *testing.T) {
	c := NewCoordinator(&recordingEngine{})
	want := map[string]string{
		FlagExtremePoints: "Hide Extreme Points",
		FlagLetterbox:     "Use Scaled View",
		FlagSound:         "Play Sound",
	}
	for _, f := range c.Flags() {
		if f.Label() != want[f.Name] {
			t.Errorf("%s label = %q, want %q", f.Name, f.Label(), want[f.Name])
		}
	}
}

func TestExportIsReadOnly(t *testing.T) {
	eng := &recordingEngine{}
	c := NewCoordinator(eng)

	ann := c.ExportAnnotations()
	if ann.Count() != 1 {
		t.Errorf("count = %d, want 1", ann.Count())
	}
	if !reflect.DeepEqual(eng.calls, []string{"GetAnnotations()"}) {
		t.Errorf("calls = %v", eng.calls)
	}

	c.ClearAnnotations()
	if eng.calls[len(eng.calls)-1] != "ClearBoxes()" {
		t.Errorf("clear did not reach engine: %v", eng.calls)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	for _, token := range ModeTokens {
		mode, ok := ParseMode(token)
		if !ok {
			t.Fatalf("ParseMode(%q) failed", token)
		}
		if got := TokenFor(mode); got != token {
			t.Errorf("TokenFor(%v) = %q, want %q", mode, got, token)
		}
	}
}
