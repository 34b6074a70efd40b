package session

import (
	"errors"
	"fmt"

	"github.com/abelbrown/forager/internal/engine"
)

// recordingEngine logs every capability call in order.
type recordingEngine struct {
	calls      []string
	records    []engine.ImageRecord
	current    int
	mode       engine.Mode
	categories engine.Categories
	extreme    bool
	letterbox  bool
	audio      bool
	loadErr    error
	initErr    error
	keys       []*engine.KeyEvent
}

func (e *recordingEngine) record(format string, args ...any) {
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

func (e *recordingEngine) Init(c engine.Canvas) error {
	e.record("Init(%s)", c.ID)
	return e.initErr
}

func (e *recordingEngine) LoadImageStack(records []engine.ImageRecord) error {
	e.record("LoadImageStack(%d)", len(records))
	if e.loadErr != nil {
		return e.loadErr
	}
	for _, r := range records {
		if r.SourceLocation == "" {
			return engine.ErrInvalidRecord
		}
	}
	if len(records) == 0 {
		return engine.ErrEmptyStack
	}
	e.records = append([]engine.ImageRecord(nil), records...)
	return nil
}

func (e *recordingEngine) SetCurrentFrameNum(i int) {
	e.record("SetCurrentFrameNum(%d)", i)
	e.current = i
}

func (e *recordingEngine) SetAnnotationMode(m engine.Mode) {
	e.record("SetAnnotationMode(%s)", m)
	e.mode = m
}

func (e *recordingEngine) SetCategories(c engine.Categories) {
	e.record("SetCategories(%d)", len(c))
	e.categories = c
}

func (e *recordingEngine) SetExtremePointsVisualization(v bool) {
	e.record("SetExtremePointsVisualization(%t)", v)
	e.extreme = v
}

func (e *recordingEngine) SetLetterboxView(v bool) {
	e.record("SetLetterboxView(%t)", v)
	e.letterbox = v
}

func (e *recordingEngine) SetPlayAudio(v bool) {
	e.record("SetPlayAudio(%t)", v)
	e.audio = v
}

func (e *recordingEngine) ClearBoxes() { e.record("ClearBoxes()") }

func (e *recordingEngine) GetAnnotations() engine.Annotations {
	e.record("GetAnnotations()")
	return engine.Annotations{Frames: []engine.FrameAnnotations{{Frame: 0, Points: []engine.Point{{X: 0.5, Y: 0.5}}}}}
}

func (e *recordingEngine) HandleKeyDown(ev *engine.KeyEvent) {
	e.record("HandleKeyDown(%s)", ev.Key)
	e.keys = append(e.keys, ev)
}

func (e *recordingEngine) HandleKeyUp(ev *engine.KeyEvent) {
	e.record("HandleKeyUp(%s)", ev.Key)
}

func (e *recordingEngine) currentSource() string {
	if e.current < 0 || e.current >= len(e.records) {
		return ""
	}
	return e.records[e.current].SourceLocation
}

var errRefused = errors.New("refused")
