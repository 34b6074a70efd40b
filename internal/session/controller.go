// Package session drives an annotation engine from user controls.
//
// A Controller combines three parts: the Coordinator (annotation mode and
// toggle flags), the Binder (image stack and frame selection) and the Router
// (keyboard forwarding). All methods run on the UI goroutine; nothing here
// locks.
package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abelbrown/forager/internal/engine"
	"github.com/abelbrown/forager/internal/otel"
)

// Workspace modes. Explore hides the labeling canvas; key routing is not
// affected.
const (
	WorkspaceAnnotate = "annotate"
	WorkspaceExplore  = "explore"
)

// Controller is the labeling session controller.
type Controller struct {
	eng       engine.Engine
	coord     *Coordinator
	binder    *Binder
	router    *Router
	logger    *otel.Logger
	workspace string
	started   bool
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	logger     *otel.Logger
	routerOpts []RouterOption
}

// WithLogger attaches an event logger.
func WithLogger(l *otel.Logger) Option {
	return func(o *controllerOptions) { o.logger = l }
}

// WithRouterOptions passes options through to the keyboard router.
func WithRouterOptions(opts ...RouterOption) Option {
	return func(o *controllerOptions) { o.routerOpts = append(o.routerOpts, opts...) }
}

// New builds a controller around eng. Call Start before anything else.
func New(eng engine.Engine, opts ...Option) *Controller {
	var o controllerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{
		eng:       eng,
		coord:     NewCoordinator(eng),
		binder:    NewBinder(eng),
		router:    NewRouter(eng, o.routerOpts...),
		logger:    o.logger,
		workspace: WorkspaceAnnotate,
	}
}

// Start initializes the engine on canvas and informs it of the initial flags
// and mode.
func (c *Controller) Start(canvas engine.Canvas) error {
	if err := c.eng.Init(canvas); err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	c.coord.Start()
	c.started = true
	c.logger.Emit(otel.Event{
		Kind:  otel.KindModeChange,
		Comp:  "session",
		Value: TokenFor(c.coord.Mode()),
		Msg:   "session started",
	})
	return nil
}

// Started reports whether Start succeeded.
func (c *Controller) Started() bool { return c.started }

// Engine returns the driven engine.
func (c *Controller) Engine() engine.Engine { return c.eng }

// Mode returns the active annotation mode.
func (c *Controller) Mode() engine.Mode { return c.coord.Mode() }

// SetMode switches the annotation mode by control token.
func (c *Controller) SetMode(token string) ModeOutcome {
	out := c.coord.SetMode(token)
	if out == ModeUnchanged {
		c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindModeIgnored, Comp: "session", Value: token})
		return out
	}
	c.logger.Emit(otel.Event{Kind: otel.KindModeChange, Comp: "session", Value: token})
	return out
}

// Flags returns the toggle flags in display order.
func (c *Controller) Flags() []ToggleFlag { return c.coord.Flags() }

// Flag returns one toggle flag.
func (c *Controller) Flag(name string) (ToggleFlag, bool) { return c.coord.Flag(name) }

// Toggle negates the named flag.
func (c *Controller) Toggle(name string) (ToggleFlag, error) {
	f, err := c.coord.Toggle(name)
	if err != nil {
		c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindToggle, Comp: "session", Value: name, Err: err.Error()})
		return f, err
	}
	c.logger.Emit(otel.Event{
		Kind:  otel.KindToggle,
		Comp:  "session",
		Value: f.Name + "=" + strconv.FormatBool(f.Value),
	})
	return f, nil
}

// LoadStack installs an ordered list of image locations.
func (c *Controller) LoadStack(dataset string, locations []string) error {
	if err := c.binder.LoadStack(locations); err != nil {
		c.logger.Emit(otel.Event{
			Level:   otel.LevelWarn,
			Kind:    otel.KindStackRejected,
			Comp:    "session",
			Dataset: dataset,
			Count:   len(locations),
			Err:     err.Error(),
		})
		return err
	}
	c.logger.Emit(otel.Event{Kind: otel.KindStackLoad, Comp: "session", Dataset: dataset, Count: len(locations)})
	return nil
}

// StackLen returns the size of the loaded stack.
func (c *Controller) StackLen() int { return c.binder.Len() }

// Record returns the record at frame index i of the loaded stack.
func (c *Controller) Record(i int) (engine.ImageRecord, bool) { return c.binder.Record(i) }

// Select consumes a view selection.
func (c *Controller) Select(ev SelectionEvent) error {
	if err := c.binder.Select(ev); err != nil {
		c.logger.Emit(otel.Event{
			Level: otel.LevelDebug,
			Kind:  otel.KindSelectIgnored,
			Comp:  "session",
			Count: ev.FrameIndex,
			Err:   err.Error(),
		})
		return err
	}
	c.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSelect, Comp: "session", Count: ev.FrameIndex})
	return nil
}

// KeyDown routes a key-down transition to the engine.
func (c *Controller) KeyDown(ev *engine.KeyEvent) bool {
	ok := c.router.KeyDown(ev)
	c.logger.Trace(otel.Event{Kind: otel.KindKeyPress, Comp: "session", Value: ev.Key})
	return ok
}

// KeyUp routes a key-up transition to the engine.
func (c *Controller) KeyUp(ev *engine.KeyEvent) bool {
	return c.router.KeyUp(ev)
}

// ClearAnnotations discards all annotations.
func (c *Controller) ClearAnnotations() {
	c.coord.ClearAnnotations()
	c.logger.Emit(otel.Event{Kind: otel.KindClear, Comp: "session"})
}

// ExportAnnotations returns the engine's current annotation set.
func (c *Controller) ExportAnnotations() engine.Annotations {
	ann := c.coord.ExportAnnotations()
	c.logger.Emit(otel.Event{Kind: otel.KindExport, Comp: "session", Count: ann.Count()})
	return ann
}

// Workspace returns the current workspace mode.
func (c *Controller) Workspace() string { return c.workspace }

// SetWorkspaceMode switches between annotate and explore. Unknown tokens are
// ignored and reported as false.
func (c *Controller) SetWorkspaceMode(token string) bool {
	switch token {
	case WorkspaceAnnotate, WorkspaceExplore:
	default:
		return false
	}
	c.workspace = token
	c.logger.Emit(otel.Event{Kind: otel.KindWorkspace, Comp: "session", Value: token})
	return true
}

// IsIgnored reports whether err belongs to the ignored-input class: the UI
// drops these without surfacing them.
func IsIgnored(err error) bool {
	return errors.Is(err, ErrUnknownFlag) || errors.Is(err, ErrFrameOutOfRange)
}
