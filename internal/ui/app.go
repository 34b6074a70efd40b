package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/forager/internal/engine"
	"github.com/abelbrown/forager/internal/lifecycle"
	"github.com/abelbrown/forager/internal/otel"
	"github.com/abelbrown/forager/internal/session"
)

// View names accepted by AppConfig.View.
const (
	ViewColumn = "column"
	ViewGrid   = "grid"
)

// FocusTracker reports whether a text field owns the keyboard. The App keeps
// it current; session.WithFocusGuard(tracker.Focused) lets the key router
// see it.
type FocusTracker struct {
	focused bool
}

// Focused reports whether a text field has keyboard focus.
func (f *FocusTracker) Focused() bool { return f != nil && f.focused }

func (f *FocusTracker) set(v bool) {
	if f != nil {
		f.focused = v
	}
}

// AppConfig holds everything the App needs. The App does not talk to the
// server itself; it receives results via messages produced by the Cmd
// factories.
type AppConfig struct {
	Dataset       string
	View          string
	ImageHeight   int
	GridCellWidth int

	Controller *session.Controller
	Renderer   engine.Renderer // optional canvas drawing
	Ring       *otel.RingBuffer
	Logger     *otel.Logger

	// Restore is applied to the initial lifecycle state.
	Restore []lifecycle.Action
	// Caption pre-fills the caption search text.
	Caption string
	// Focus, when set, lets the caption field take keyboard focus.
	Focus *FocusTracker

	FetchStack        func(dataset string, gen uint64) tea.Cmd
	FetchResults      func(dataset string, gen uint64) tea.Cmd
	StartCluster      func() tea.Cmd
	BuildIndex        func(dataset string) tea.Cmd
	GenerateEmbedding func(text string) tea.Cmd
}

// App is the root Bubble Tea model for a labeling session.
// IMPORTANT: App does NOT hold the store or the backend client.
type App struct {
	ctrl     *session.Controller
	renderer engine.Renderer
	ring     *otel.RingBuffer
	logger   *otel.Logger
	focus    *FocusTracker

	fetchStack        func(dataset string, gen uint64) tea.Cmd
	fetchResults      func(dataset string, gen uint64) tea.Cmd
	startCluster      func() tea.Cmd
	buildIndex        func(dataset string) tea.Cmd
	generateEmbedding func(text string) tea.Cmd

	dataset   string
	lifecycle lifecycle.State
	view      ImageView
	caption   captionPanel

	stackGen     uint64
	stackLoading bool
	stackErr     error
	resultsGen   uint64 // generation of the mount fetch

	selected       int
	clusterPending bool
	indexPending   bool
	exported       *engine.Annotations
	status         string
	statusErr      bool
	debugVisible   bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App from cfg.
func NewApp(cfg AppConfig) App {
	var view ImageView
	if cfg.View == ViewGrid {
		view = NewGridView(cfg.Dataset, cfg.GridCellWidth, cfg.ImageHeight)
	} else {
		view = NewColumnView(cfg.Dataset, cfg.ImageHeight)
	}
	a := App{
		ctrl:              cfg.Controller,
		renderer:          cfg.Renderer,
		ring:              cfg.Ring,
		logger:            cfg.Logger,
		focus:             cfg.Focus,
		fetchStack:        cfg.FetchStack,
		fetchResults:      cfg.FetchResults,
		startCluster:      cfg.StartCluster,
		buildIndex:        cfg.BuildIndex,
		generateEmbedding: cfg.GenerateEmbedding,
		dataset:           cfg.Dataset,
		lifecycle:         lifecycle.ApplyAll(lifecycle.Initial(), cfg.Restore...),
		view:              view,
		caption:           newCaptionPanel(cfg.Caption),
		selected:          -1,
	}
	// Init has a value receiver, so the mount generations are taken here.
	if a.fetchStack != nil {
		a.stackGen = 1
		a.stackLoading = true
	}
	if a.fetchResults != nil {
		a.resultsGen = view.Begin()
	}
	return a
}

// Init fetches the dataset's image stack and mounts the image view.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.caption.spinner.Tick}
	if a.fetchStack != nil {
		a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "ui", Dataset: a.dataset, Value: "stack"})
		cmds = append(cmds, a.fetchStack(a.dataset, a.stackGen))
	}
	if a.fetchResults != nil {
		a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "ui", Dataset: a.dataset, Value: "results"})
		cmds = append(cmds, a.fetchResults(a.dataset, a.resultsGen))
	}
	return tea.Batch(cmds...)
}

// loadStack issues a stack fetch under a new generation.
func (a *App) loadStack() tea.Cmd {
	if a.fetchStack == nil {
		return nil
	}
	a.stackGen++
	a.stackLoading = true
	a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "ui", Dataset: a.dataset, Value: "stack"})
	return a.fetchStack(a.dataset, a.stackGen)
}

func (a *App) loadResults() tea.Cmd {
	if a.fetchResults == nil {
		return nil
	}
	gen := a.view.Begin()
	a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "ui", Dataset: a.dataset, Value: "results"})
	return a.fetchResults(a.dataset, gen)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.logger.Trace(otel.Event{Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true

	case tea.KeyMsg:
		cmd = a.handleKey(msg)

	case tea.MouseMsg:
		cmd = a.handleMouse(msg)

	case LifecycleMsg:
		a.applyLifecycle(msg.Action)

	case PollError:
		a.setStatus(fmt.Sprintf("poll %s: %v", msg.Target, msg.Err), true)

	case ActionFailed:
		switch msg.Op {
		case "start cluster":
			a.clusterPending = false
		case "build index":
			a.indexPending = false
		}
		a.setStatus(fmt.Sprintf("%s: %v", msg.Op, msg.Err), true)

	case StackFetched:
		a.handleStack(msg)

	case ResultsFetched:
		if !a.view.Accept(msg) {
			a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStale, Comp: "ui", Dataset: msg.Dataset, Value: "results"})
			break
		}
		if msg.Err != nil {
			a.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFetchError, Comp: "ui", Dataset: msg.Dataset, Err: msg.Err.Error()})
			a.setStatus("results: "+msg.Err.Error(), true)
			break
		}
		a.logger.Emit(otel.Event{Kind: otel.KindFetchComplete, Comp: "ui", Dataset: msg.Dataset, Value: "results", Count: len(msg.Entries)})

	case EmbeddingFetched:
		if !a.caption.settle(msg) {
			a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStale, Comp: "ui", Value: "embedding"})
			break
		}
		if msg.Err != nil {
			a.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindEmbedError, Comp: "ui", Err: msg.Err.Error()})
			break
		}
		a.logger.Emit(otel.Event{Kind: otel.KindEmbedComplete, Comp: "ui", Count: len(msg.Embedding)})

	case spinner.TickMsg:
		a.caption.spinner, cmd = a.caption.spinner.Update(msg)
	}

	a.focus.set(a.caption.focused())
	return a, cmd
}

func (a *App) handleStack(msg StackFetched) {
	if msg.Dataset != a.dataset || msg.Gen != a.stackGen {
		a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStale, Comp: "ui", Dataset: msg.Dataset, Value: "stack"})
		return
	}
	a.stackLoading = false
	if msg.Err != nil {
		a.stackErr = msg.Err
		a.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFetchError, Comp: "ui", Dataset: msg.Dataset, Value: "stack", Err: msg.Err.Error()})
		a.setStatus("dataset: "+msg.Err.Error(), true)
		return
	}
	a.logger.Emit(otel.Event{Kind: otel.KindFetchComplete, Comp: "ui", Dataset: msg.Dataset, Value: "stack", Count: len(msg.Paths)})
	if err := a.ctrl.LoadStack(msg.Dataset, msg.Paths); err != nil {
		a.stackErr = err
		a.setStatus("image stack rejected: "+err.Error(), true)
		return
	}
	a.stackErr = nil
}

func (a *App) applyLifecycle(action lifecycle.Action) {
	a.lifecycle = lifecycle.Apply(a.lifecycle, action)
	switch act := action.(type) {
	case lifecycle.SetClusterID:
		a.clusterPending = false
		a.setStatus("cluster "+act.ClusterID+" requested", false)
	case lifecycle.SetIndexID:
		if act.Dataset == a.dataset {
			a.indexPending = false
		}
		a.setStatus("index build started for "+act.Dataset, false)
	}
	a.logger.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindLifecycleAction, Comp: "ui", Value: action.ActionType()})
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusErr = isErr
}

// keyEvent converts a terminal key to the engine's key event.
func keyEvent(msg tea.KeyMsg) *engine.KeyEvent {
	key := msg.String()
	ev := &engine.KeyEvent{
		Key:   key,
		Alt:   msg.Alt,
		Ctrl:  strings.HasPrefix(key, "ctrl+"),
		Shift: strings.HasPrefix(key, "shift+"),
	}
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		ev.Code = int(msg.Runes[0])
	} else {
		ev.Code = int(msg.Type)
	}
	return ev
}

// handleKey routes every key to the engine. ctrl+c is the program's own
// shortcut and never reaches it.
func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	ev := keyEvent(msg)
	if a.ctrl.KeyDown(ev) {
		// Terminals report no releases; pair every press with its release.
		a.ctrl.KeyUp(&engine.KeyEvent{Key: ev.Key, Code: ev.Code, Alt: ev.Alt, Ctrl: ev.Ctrl, Shift: ev.Shift})
		return nil
	}

	// Blocked by the focus guard: the caption field owns the key.
	switch msg.Type {
	case tea.KeyEsc:
		a.caption.blur()
		return nil
	case tea.KeyEnter:
		return a.generate()
	}
	return a.caption.updateInput(msg)
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.view.Scroll(-1)
		return nil
	case tea.MouseButtonWheelDown:
		a.view.Scroll(1)
		return nil
	case tea.MouseButtonLeft:
	default:
		return nil
	}
	if msg.Action != tea.MouseActionPress {
		return nil
	}
	if a.debugVisible {
		a.debugVisible = false
		return nil
	}

	lay := a.layout()
	if id, ok := hitTest(lay.hits, msg.X, msg.Y); ok {
		return a.press(id)
	}
	if a.caption.open && msg.Y == lay.inputRow && a.focus != nil {
		return a.caption.input.Focus()
	}
	if msg.Y >= lay.viewTop && msg.Y < lay.viewTop+lay.viewHeight {
		if entry, ok := a.view.EntryAt(msg.X, msg.Y-lay.viewTop, a.width, lay.viewHeight); ok {
			a.selectFrame(entry.Idx)
		}
	}
	return nil
}

// selectFrame forwards a view click. Out-of-range frames are ignored input.
func (a *App) selectFrame(idx int) {
	err := a.ctrl.Select(session.SelectionEvent{FrameIndex: idx})
	if err != nil {
		if !session.IsIgnored(err) {
			a.setStatus(err.Error(), true)
		}
		return
	}
	a.selected = idx
}

// press performs the action of a clicked control.
func (a *App) press(id controlID) tea.Cmd {
	switch id {
	case ctlMode:
		a.ctrl.SetMode(nextToken(session.ModeTokens, session.TokenFor(a.ctrl.Mode())))
	case ctlExtremePoints:
		a.toggle(session.FlagExtremePoints)
	case ctlLetterbox:
		a.toggle(session.FlagLetterbox)
	case ctlSound:
		a.toggle(session.FlagSound)
	case ctlClear:
		a.ctrl.ClearAnnotations()
		a.exported = nil
		a.setStatus("annotations cleared", false)
	case ctlExport:
		ann := a.ctrl.ExportAnnotations()
		a.exported = &ann
	case ctlWorkspace:
		a.ctrl.SetWorkspaceMode(nextToken([]string{session.WorkspaceAnnotate, session.WorkspaceExplore}, a.ctrl.Workspace()))
	case ctlStartCluster:
		if a.startCluster != nil {
			a.clusterPending = true
			return a.startCluster()
		}
	case ctlBuildIndex:
		if a.buildIndex != nil {
			a.indexPending = true
			return a.buildIndex(a.dataset)
		}
	case ctlCaption:
		return a.caption.toggle(a.focus != nil)
	case ctlGenerate:
		return a.generate()
	case ctlStarterPhotoOf, ctlStarterContaining:
		return a.fillCaption(id)
	case ctlReload:
		a.exported = nil
		return tea.Batch(a.loadStack(), a.loadResults())
	case ctlDebug:
		a.debugVisible = !a.debugVisible
	}
	return nil
}

func (a *App) toggle(name string) {
	if _, err := a.ctrl.Toggle(name); err != nil && !errors.Is(err, session.ErrUnknownFlag) {
		a.setStatus(err.Error(), true)
	}
}

// fillCaption replaces the caption with a quick-fill opening and, when the
// field can take keys, focuses it so the user can finish the sentence.
func (a *App) fillCaption(id controlID) tea.Cmd {
	for i, c := range starterControls {
		if c != id {
			continue
		}
		a.caption.SetText(captionStarters[i].text)
		if a.focus != nil {
			return a.caption.input.Focus()
		}
	}
	return nil
}

func (a *App) generate() tea.Cmd {
	if !a.caption.canGenerate() || a.generateEmbedding == nil {
		return nil
	}
	text := a.caption.begin()
	a.logger.Emit(otel.Event{Kind: otel.KindEmbedStart, Comp: "ui", Value: text})
	return a.generateEmbedding(text)
}

func (a *App) clusterReady() bool {
	return a.lifecycle.Cluster.Status == lifecycle.ClusterStarted
}

func (a *App) canBuildIndex() bool {
	if a.indexPending || !a.clusterReady() {
		return false
	}
	_, registered := a.lifecycle.Index(a.dataset)
	return !registered
}

func (a *App) flagControl(name string) (controlID, bool) {
	switch name {
	case session.FlagExtremePoints:
		return ctlExtremePoints, true
	case session.FlagLetterbox:
		return ctlLetterbox, true
	case session.FlagSound:
		return ctlSound, true
	}
	return 0, false
}

// controls returns the control bar for the current state.
func (a *App) controls() []control {
	ctls := []control{{id: ctlMode, label: "mode: " + a.ctrl.Mode().String()}}
	for _, f := range a.ctrl.Flags() {
		if id, ok := a.flagControl(f.Name); ok {
			ctls = append(ctls, control{id: id, label: f.Label(), active: f.Value})
		}
	}
	ctls = append(ctls,
		control{id: ctlClear, label: "clear annotations"},
		control{id: ctlExport, label: "get annotations"},
		control{id: ctlWorkspace, label: "workspace: " + a.ctrl.Workspace()},
		control{id: ctlStartCluster, label: "start cluster",
			disabled: a.clusterPending || a.lifecycle.Cluster.Status != lifecycle.ClusterNotStarted || a.startCluster == nil},
		control{id: ctlBuildIndex, label: "build index", disabled: !a.canBuildIndex() || a.buildIndex == nil},
		control{id: ctlCaption, label: "caption search", active: a.caption.open},
		control{id: ctlReload, label: "reload"},
		control{id: ctlDebug, label: "debug", active: a.debugVisible},
	)
	return ctls
}

// screenLayout is the vertical arrangement of one frame. View and mouse
// handling both derive from it so clicks land where things were drawn.
type screenLayout struct {
	header     string
	rows       []string // control rows, then popover rows
	hits       []hitbox
	inputRow   int
	canvas     string
	exported   []string
	viewTop    int
	viewHeight int
}

func (a *App) layout() screenLayout {
	var lay screenLayout
	lay.header = a.header()

	rows, hits := layoutControls(a.controls(), a.width, 1)
	lay.rows = rows
	lay.hits = hits
	lay.inputRow = -1

	if a.caption.open {
		starters := make([]control, len(captionStarters))
		for i, st := range captionStarters {
			starters[i] = control{id: starterControls[i], label: st.label, disabled: a.caption.loading}
		}
		stRows, stHits := layoutControls(starters, a.width, 1+len(lay.rows))
		lay.rows = append(lay.rows, stRows...)
		lay.hits = append(lay.hits, stHits...)

		lay.inputRow = 1 + len(lay.rows)
		lay.rows = append(lay.rows, a.caption.view(a.width)...)
		gen := []control{{id: ctlGenerate, label: a.caption.generateLabel(), disabled: !a.caption.canGenerate()}}
		genRows, genHits := layoutControls(gen, a.width, 1+len(lay.rows))
		lay.rows = append(lay.rows, genRows...)
		lay.hits = append(lay.hits, genHits...)
	}

	top := 1 + len(lay.rows)
	if a.ctrl.Workspace() == session.WorkspaceAnnotate && a.renderer != nil {
		canvasHeight := a.height / 3
		if canvasHeight < 4 {
			canvasHeight = 4
		}
		lay.canvas = CanvasBorder.Render(strings.Repeat("─", max(a.width, 1))) + "\n" +
			a.renderer.Render(a.width, canvasHeight)
		top += lipgloss.Height(lay.canvas)
	}

	if a.exported != nil {
		lay.exported = exportLines(*a.exported, a.width)
		top += len(lay.exported)
	}

	lay.viewTop = top
	lay.viewHeight = a.height - top - 1 // status bar
	if lay.viewHeight < 1 {
		lay.viewHeight = 1
	}
	return lay
}

func (a *App) header() string {
	cluster := a.lifecycle.Cluster.Status
	clusterBadge := BadgeIdle
	switch cluster {
	case lifecycle.ClusterStarting, lifecycle.ClusterPreparing:
		clusterBadge = BadgeBusy
	case lifecycle.ClusterStarted:
		clusterBadge = BadgeReady
	}

	indexText := "INDEX_NONE"
	indexBadge := BadgeIdle
	if idx, ok := a.lifecycle.Index(a.dataset); ok {
		indexText = idx.Status.String()
		switch idx.Status {
		case lifecycle.IndexBuilding:
			indexBadge = BadgeBusy
		case lifecycle.IndexBuilt:
			indexBadge = BadgeReady
		}
	}

	return HeaderStyle.Render("forager · "+a.dataset) + " " +
		clusterBadge.Render(cluster.String()) + " " +
		indexBadge.Render(indexText)
}

// exportLines summarizes an annotation export, one line per annotated frame.
func exportLines(ann engine.Annotations, width int) []string {
	lines := []string{DebugHeaderStyle.Render(fmt.Sprintf("Annotations (%d)", ann.Count()))}
	for _, f := range ann.Frames {
		if f.Empty() {
			continue
		}
		s := fmt.Sprintf("  #%d %s: %d boxes, %d points", f.Frame, f.Source, len(f.Boxes), len(f.Points))
		if f.Category != "" {
			s += ", category " + f.Category
		}
		lines = append(lines, truncateRunes(s, width))
	}
	return lines
}

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.debugVisible {
		overlay := debugOverlay(a.ring, a.width, a.height-1)
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	lay := a.layout()
	parts := []string{lay.header}
	parts = append(parts, lay.rows...)
	if lay.canvas != "" {
		parts = append(parts, lay.canvas)
	}
	parts = append(parts, lay.exported...)
	parts = append(parts, a.view.Render(a.width, lay.viewHeight, a.selected))

	body := strings.Join(parts, "\n")
	// Pad so the status bar sits on the last line.
	if gap := a.height - 1 - lipgloss.Height(body); gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return body + "\n" + a.renderStatusBar()
}

func (a *App) renderStatusBar() string {
	var left string
	switch {
	case a.status != "" && a.statusErr:
		left = ErrorStyle.Render(truncateRunes(a.status, a.width/2))
	case a.status != "":
		left = StatusBarText.Render(truncateRunes(a.status, a.width/2))
	case a.stackLoading:
		left = StatusBarText.Render("loading image stack...")
	case a.stackErr != nil:
		left = ErrorStyle.Render("no image stack")
	default:
		left = StatusBarText.Render(fmt.Sprintf("%d frames", a.ctrl.StackLen()))
	}
	keys := StatusBarKey.Render("click") + StatusBarText.Render(":controls ") +
		StatusBarKey.Render("wheel") + StatusBarText.Render(":scroll ") +
		StatusBarKey.Render("ctrl+c") + StatusBarText.Render(":quit")
	return StatusBar.Width(a.width).Render(left + "  " + keys)
}

// Test accessors.

// Lifecycle returns the current lifecycle state.
func (a App) Lifecycle() lifecycle.State { return a.lifecycle }

// Selected returns the idx of the selected entry, or -1.
func (a App) Selected() int { return a.selected }

// ImageView returns the mounted image view.
func (a App) ImageView() ImageView { return a.view }
