package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/engine"
	"github.com/abelbrown/forager/internal/lifecycle"
	"github.com/abelbrown/forager/internal/otel"
	"github.com/abelbrown/forager/internal/session"
)

// fetchLog records the requests the App issued through its Cmd factories.
type fetchLog struct {
	stackGens  []uint64
	resultGens []uint64
	clusters   int
	indexes    []string
	embeddings []string
}

func (f *fetchLog) config(dataset string) AppConfig {
	return AppConfig{
		Dataset:     dataset,
		View:        ViewColumn,
		ImageHeight: 1,
		FetchStack: func(_ string, gen uint64) tea.Cmd {
			f.stackGens = append(f.stackGens, gen)
			return nil
		},
		FetchResults: func(_ string, gen uint64) tea.Cmd {
			f.resultGens = append(f.resultGens, gen)
			return nil
		},
		StartCluster: func() tea.Cmd {
			f.clusters++
			return nil
		},
		BuildIndex: func(ds string) tea.Cmd {
			f.indexes = append(f.indexes, ds)
			return nil
		},
		GenerateEmbedding: func(text string) tea.Cmd {
			f.embeddings = append(f.embeddings, text)
			return nil
		},
	}
}

// newTestApp starts a session on a Memory engine and returns a sized App.
func newTestApp(t *testing.T, cfg AppConfig, opts ...session.Option) (App, *engine.Memory) {
	t.Helper()
	eng := engine.NewMemory()
	ctrl := session.New(eng, opts...)
	if err := ctrl.Start(engine.Canvas{ID: "canvas"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cfg.Controller = ctrl
	app := NewApp(cfg)
	app.Init()
	return update(app, tea.WindowSizeMsg{Width: 80, Height: 40}), eng
}

func update(app App, msg tea.Msg) App {
	m, _ := app.Update(msg)
	return m.(App)
}

func leftClick(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}
}

// clickControl presses the control with the given id, failing if it is not
// on screen or disabled.
func clickControl(t *testing.T, app App, id controlID) (App, tea.Cmd) {
	t.Helper()
	lay := app.layout()
	for _, h := range lay.hits {
		if h.id == id {
			m, cmd := app.Update(leftClick(h.x0, h.y))
			return m.(App), cmd
		}
	}
	t.Fatalf("control %d is not clickable", id)
	return app, nil
}

func controlByID(app App, id controlID) (control, bool) {
	for _, c := range app.controls() {
		if c.id == id {
			return c, true
		}
	}
	return control{}, false
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sixFrames() []string {
	return []string{"/a.jpg", "/x1.jpg", "/x2.jpg", "/x3.jpg", "/x4.jpg", "/b.jpg"}
}

func TestInitFetchesStackAndResultsOnce(t *testing.T) {
	var log fetchLog
	newTestApp(t, log.config("cats"))

	if len(log.stackGens) != 1 || log.stackGens[0] != 1 {
		t.Errorf("stack fetches = %v, want [1]", log.stackGens)
	}
	if len(log.resultGens) != 1 || log.resultGens[0] != 1 {
		t.Errorf("result fetches = %v, want [1]", log.resultGens)
	}
}

func TestClickSelectsByEntryIdx(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))

	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: sixFrames()})
	app = update(app, ResultsFetched{Dataset: "cats", Gen: 1, Entries: []backend.ImageEntry{
		{Idx: 0, Path: "/a.jpg"},
		{Idx: 5, Path: "/b.jpg"},
	}})

	lay := app.layout()
	app = update(app, leftClick(2, lay.viewTop+1))

	if eng.CurrentFrameNum() != 5 {
		t.Errorf("current frame = %d, want 5 (the entry's idx, not its position)", eng.CurrentFrameNum())
	}
	if app.Selected() != 5 {
		t.Errorf("Selected() = %d, want 5", app.Selected())
	}
	if !strings.Contains(app.View(), "b.jpg") {
		t.Error("view should list b.jpg")
	}
}

func TestClickOutOfRangeFrameIsIgnored(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))

	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: []string{"/a.jpg", "/b.jpg"}})
	app = update(app, ResultsFetched{Dataset: "cats", Gen: 1, Entries: []backend.ImageEntry{{Idx: 9, Path: "/z.jpg"}}})

	lay := app.layout()
	app = update(app, leftClick(2, lay.viewTop))

	if eng.CurrentFrameNum() != 0 {
		t.Errorf("current frame = %d, want 0", eng.CurrentFrameNum())
	}
	if app.Selected() != -1 {
		t.Errorf("Selected() = %d, want -1", app.Selected())
	}
	if app.status != "" {
		t.Errorf("ignored input should not surface, status = %q", app.status)
	}
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app, _ = clickControl(t, app, ctlReload)
	if got := log.resultGens; len(got) != 2 || got[1] != 2 {
		t.Fatalf("result fetches = %v, want [1 2]", got)
	}

	app = update(app, ResultsFetched{Dataset: "cats", Gen: 1, Entries: []backend.ImageEntry{{Idx: 1, Path: "/old.jpg"}}})
	if n := len(app.ImageView().Entries()); n != 0 {
		t.Fatalf("stale result applied: %d entries", n)
	}
	if !app.ImageView().Loading() {
		t.Error("view should still be loading after a stale result")
	}

	app = update(app, ResultsFetched{Dataset: "cats", Gen: 2, Entries: []backend.ImageEntry{{Idx: 2, Path: "/new.jpg"}}})
	entries := app.ImageView().Entries()
	if len(entries) != 1 || entries[0].Path != "/new.jpg" {
		t.Errorf("entries = %v, want the generation 2 result", entries)
	}
}

func TestResultsForOtherDatasetAreDiscarded(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app = update(app, ResultsFetched{Dataset: "dogs", Gen: 1, Entries: []backend.ImageEntry{{Idx: 0, Path: "/d.jpg"}}})
	if n := len(app.ImageView().Entries()); n != 0 {
		t.Errorf("foreign dataset result applied: %d entries", n)
	}
}

func TestStaleStackIsDiscarded(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app, _ = clickControl(t, app, ctlReload)
	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: []string{"/old.jpg"}})
	if app.ctrl.StackLen() != 0 {
		t.Fatalf("stale stack loaded: %d frames", app.ctrl.StackLen())
	}

	app = update(app, StackFetched{Dataset: "cats", Gen: 2, Paths: []string{"/a.jpg", "/b.jpg"}})
	if app.ctrl.StackLen() != 2 {
		t.Errorf("StackLen() = %d, want 2", app.ctrl.StackLen())
	}
}

func TestRejectedStackKeepsPrevious(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: []string{"/a.jpg", "/b.jpg"}})
	app, _ = clickControl(t, app, ctlReload)
	app = update(app, StackFetched{Dataset: "cats", Gen: 2, Paths: []string{"/a.jpg", ""}})

	if app.ctrl.StackLen() != 2 {
		t.Errorf("StackLen() = %d, want previous stack of 2", app.ctrl.StackLen())
	}
	if !app.statusErr || !strings.Contains(app.status, "rejected") {
		t.Errorf("status = %q, want a rejection message", app.status)
	}
}

func TestStackFetchErrorShownInStatus(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Err: errors.New("dataset not found")})
	if !strings.Contains(app.View(), "dataset not found") {
		t.Errorf("view should show the fetch error, got:\n%s", app.View())
	}
}

func TestToggleUpdatesLabel(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	before, _ := controlByID(app, ctlExtremePoints)
	if before.label != "Hide Extreme Points" {
		t.Fatalf("initial label = %q", before.label)
	}

	app, _ = clickControl(t, app, ctlExtremePoints)

	after, _ := controlByID(app, ctlExtremePoints)
	if after.label != "Show Extreme Points" {
		t.Errorf("label after toggle = %q, want %q", after.label, "Show Extreme Points")
	}
	if f, _ := app.ctrl.Flag(session.FlagExtremePoints); f.Value {
		t.Error("flag should be off after toggle")
	}
}

func TestModeControlCyclesToPerFrame(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))

	if eng.Mode() != engine.ModeExtremePointsBBox {
		t.Fatalf("initial mode = %s", eng.Mode())
	}
	app, _ = clickControl(t, app, ctlMode)
	if eng.Mode() != engine.ModePoint {
		t.Errorf("mode after one click = %s, want point", eng.Mode())
	}
	app, _ = clickControl(t, app, ctlMode)
	if eng.Mode() != engine.ModePerFrameCategory {
		t.Fatalf("mode after two clicks = %s, want per-frame category", eng.Mode())
	}
	cats := eng.Categories()
	if _, ok := cats["true"]; !ok {
		t.Errorf("categories = %v, want true/false", cats)
	}
	if c, _ := controlByID(app, ctlMode); !strings.Contains(c.label, "per-frame") {
		t.Errorf("mode label = %q", c.label)
	}
}

func TestKeysRouteToEngine(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))
	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: sixFrames()})

	app = update(app, tea.KeyMsg{Type: tea.KeyRight})
	if eng.CurrentFrameNum() != 1 {
		t.Errorf("current frame = %d, want 1", eng.CurrentFrameNum())
	}
	if eng.Held("right") {
		t.Error("every key-down should be paired with a key-up")
	}

	// Keys that would otherwise drive the program reach the engine too.
	app = update(app, keyRunes("l"))
	if eng.Cursor().X <= 0.5 {
		t.Errorf("cursor X = %v, want moved right", eng.Cursor().X)
	}
	_ = app
}

func TestCtrlCQuitsWithoutRouting(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
	if eng.Held("ctrl+c") {
		t.Error("ctrl+c must not reach the engine")
	}
}

func TestLifecycleDrivesHeaderAndControls(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	if c, _ := controlByID(app, ctlBuildIndex); !c.disabled {
		t.Error("build index should be disabled before the cluster is ready")
	}

	app, _ = clickControl(t, app, ctlStartCluster)
	if log.clusters != 1 {
		t.Fatalf("StartCluster calls = %d, want 1", log.clusters)
	}
	if c, _ := controlByID(app, ctlStartCluster); !c.disabled {
		t.Error("start cluster should be disabled while pending")
	}

	app = update(app, LifecycleMsg{Action: lifecycle.SetClusterID{ClusterID: "c-1"}})
	app = update(app, LifecycleMsg{Action: lifecycle.SetClusterStatus{HasCluster: true, Started: true, Ready: true}})
	if app.Lifecycle().Cluster.Status != lifecycle.ClusterStarted {
		t.Fatalf("cluster status = %s", app.Lifecycle().Cluster.Status)
	}
	if !strings.Contains(app.View(), "CLUSTER_STARTED") {
		t.Error("header should show CLUSTER_STARTED")
	}

	app, _ = clickControl(t, app, ctlBuildIndex)
	if len(log.indexes) != 1 || log.indexes[0] != "cats" {
		t.Fatalf("BuildIndex calls = %v, want [cats]", log.indexes)
	}

	app = update(app, LifecycleMsg{Action: lifecycle.SetIndexID{Dataset: "cats", IndexID: "i-1"}})
	app = update(app, LifecycleMsg{Action: lifecycle.SetIndexStatus{Dataset: "cats", HasIndex: true}})
	if !strings.Contains(app.View(), "INDEX_BUILT") {
		t.Error("header should show INDEX_BUILT")
	}
	if c, _ := controlByID(app, ctlBuildIndex); !c.disabled {
		t.Error("build index should be disabled once an index is registered")
	}
}

func TestActionFailedReenablesStartCluster(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app, _ = clickControl(t, app, ctlStartCluster)
	app = update(app, ActionFailed{Op: "start cluster", Err: errors.New("503")})

	if c, _ := controlByID(app, ctlStartCluster); c.disabled {
		t.Error("start cluster should be enabled again after a failure")
	}
	if !strings.Contains(app.status, "503") {
		t.Errorf("status = %q", app.status)
	}
}

func TestRestoreActionsSeedLifecycle(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	cfg.Restore = []lifecycle.Action{
		lifecycle.SetClusterID{ClusterID: "c-9"},
		lifecycle.SetIndexID{Dataset: "cats", IndexID: "i-9"},
	}
	app, _ := newTestApp(t, cfg)

	st := app.Lifecycle()
	if st.Cluster.ID != "c-9" {
		t.Errorf("cluster id = %q", st.Cluster.ID)
	}
	idx, ok := st.Index("cats")
	if !ok || idx.ID != "i-9" {
		t.Errorf("index = %+v, %v", idx, ok)
	}
}

func TestPollErrorShownInStatus(t *testing.T) {
	var log fetchLog
	app, _ := newTestApp(t, log.config("cats"))

	app = update(app, PollError{Target: "cluster c-1", Err: errors.New("connection refused")})
	if !strings.Contains(app.View(), "connection refused") {
		t.Errorf("view should show the poll error, got:\n%s", app.View())
	}
}

func TestCaptionGenerateFlow(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	cfg.Caption = "a dog"
	app, _ := newTestApp(t, cfg)

	app, _ = clickControl(t, app, ctlCaption)
	app, _ = clickControl(t, app, ctlGenerate)
	if len(log.embeddings) != 1 || log.embeddings[0] != "a dog" {
		t.Fatalf("GenerateEmbedding calls = %v", log.embeddings)
	}
	if app.caption.canGenerate() {
		t.Error("generate should be disabled while loading")
	}

	app = update(app, EmbeddingFetched{Text: "a dog", Embedding: "b64vector"})
	if app.caption.loading {
		t.Error("loading should clear on settle")
	}
	if app.caption.embedding != "b64vector" {
		t.Errorf("embedding = %q", app.caption.embedding)
	}
	if app.caption.canGenerate() {
		t.Error("generate should be disabled once an embedding exists")
	}
}

func TestCaptionFailureClearsLoading(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	cfg.Caption = "a dog"
	app, _ := newTestApp(t, cfg)

	app, _ = clickControl(t, app, ctlCaption)
	app, _ = clickControl(t, app, ctlGenerate)
	app = update(app, EmbeddingFetched{Text: "a dog", Err: errors.New("timeout")})

	if app.caption.loading {
		t.Error("loading should clear on failure")
	}
	if !app.caption.canGenerate() {
		t.Error("generate should be possible again after a failure")
	}
}

func TestCaptionFocusGuardTakesKeys(t *testing.T) {
	var log fetchLog
	focus := &FocusTracker{}
	cfg := log.config("cats")
	cfg.Focus = focus
	app, eng := newTestApp(t, cfg, session.WithRouterOptions(session.WithFocusGuard(focus.Focused)))

	app, _ = clickControl(t, app, ctlCaption)
	if !focus.Focused() {
		t.Fatal("opening the caption popover should focus the text field")
	}

	for _, r := range "cat" {
		app = update(app, keyRunes(string(r)))
	}
	if got := app.caption.Text(); got != "cat" {
		t.Errorf("caption text = %q, want %q", got, "cat")
	}
	app = update(app, keyRunes("l"))
	if eng.Cursor().X != 0.5 {
		t.Error("keys typed into the caption must not reach the engine")
	}

	app = update(app, tea.KeyMsg{Type: tea.KeyEsc})
	if focus.Focused() {
		t.Fatal("esc should blur the text field")
	}
	app = update(app, keyRunes("l"))
	if eng.Cursor().X <= 0.5 {
		t.Error("keys should reach the engine after blur")
	}
}

func TestCaptionStarterFillsText(t *testing.T) {
	var log fetchLog
	focus := &FocusTracker{}
	cfg := log.config("cats")
	cfg.Caption = "a dog"
	cfg.Focus = focus
	app, _ := newTestApp(t, cfg, session.WithRouterOptions(session.WithFocusGuard(focus.Focused)))

	app, _ = clickControl(t, app, ctlCaption)
	app, _ = clickControl(t, app, ctlGenerate)
	app = update(app, EmbeddingFetched{Text: "a dog", Embedding: "vec"})
	if c, _ := controlByID(app, ctlCaption); !c.active {
		t.Fatal("caption popover should be open")
	}
	app = update(app, tea.KeyMsg{Type: tea.KeyEsc})

	app, _ = clickControl(t, app, ctlStarterContaining)
	if got := app.caption.Text(); got != "A photo containing a " {
		t.Errorf("caption text = %q", got)
	}
	if app.caption.embedding != "" {
		t.Error("a quick-fill should clear the old embedding")
	}
	if !focus.Focused() {
		t.Error("a quick-fill should focus the field")
	}

	app = update(app, keyRunes("c"))
	if got := app.caption.Text(); got != "A photo containing a c" {
		t.Errorf("typing after a quick-fill should append, got %q", got)
	}
}

func TestCaptionStartersDisabledWhileLoading(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	cfg.Caption = "a dog"
	app, _ := newTestApp(t, cfg)

	app, _ = clickControl(t, app, ctlCaption)
	if !strings.Contains(app.View(), "A photo of a(n)...") {
		t.Fatalf("popover should offer quick-fills:\n%s", app.View())
	}
	app, _ = clickControl(t, app, ctlStarterPhotoOf)
	if got := app.caption.Text(); got != "A photo of a " {
		t.Fatalf("caption text = %q", got)
	}

	app, _ = clickControl(t, app, ctlGenerate)
	for _, h := range app.layout().hits {
		if h.id == ctlStarterPhotoOf || h.id == ctlStarterContaining {
			t.Errorf("quick-fill %d should not be clickable while loading", h.id)
		}
	}
}

func TestCaptionWithoutGuardRoutesKeys(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))

	app, _ = clickControl(t, app, ctlCaption)
	app = update(app, keyRunes("l"))

	if app.caption.Text() != "" {
		t.Errorf("caption text = %q, want empty", app.caption.Text())
	}
	if eng.Cursor().X <= 0.5 {
		t.Error("without a focus guard every key reaches the engine")
	}
}

func TestExportShowsAnnotations(t *testing.T) {
	var log fetchLog
	app, eng := newTestApp(t, log.config("cats"))
	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: sixFrames()})

	// Point mode: one click at the crosshair records a point.
	app, _ = clickControl(t, app, ctlMode)
	app = update(app, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if eng.GetAnnotations().Count() != 1 {
		t.Fatalf("annotation count = %d, want 1", eng.GetAnnotations().Count())
	}

	app, _ = clickControl(t, app, ctlExport)
	view := app.View()
	if !strings.Contains(view, "Annotations (1)") {
		t.Errorf("export panel missing, got:\n%s", view)
	}

	app, _ = clickControl(t, app, ctlClear)
	if eng.GetAnnotations().Count() != 0 {
		t.Error("clear should remove all annotations")
	}
	if strings.Contains(app.View(), "Annotations (") {
		t.Error("clear should close the export panel")
	}
}

func TestExploreHidesCanvas(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	eng := engine.NewMemory()
	ctrl := session.New(eng)
	if err := ctrl.Start(engine.Canvas{ID: "canvas"}); err != nil {
		t.Fatal(err)
	}
	cfg.Controller = ctrl
	cfg.Renderer = eng
	app := update(NewApp(cfg), tea.WindowSizeMsg{Width: 80, Height: 40})
	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: sixFrames()})

	if !strings.Contains(app.View(), "frame 1/6") {
		t.Fatalf("annotate workspace should draw the canvas, got:\n%s", app.View())
	}

	app, _ = clickControl(t, app, ctlWorkspace)
	if ctrl.Workspace() != session.WorkspaceExplore {
		t.Fatalf("workspace = %q", ctrl.Workspace())
	}
	if strings.Contains(app.View(), "frame 1/6") {
		t.Error("explore workspace should hide the canvas")
	}

	// Key routing is unaffected by the workspace.
	app = update(app, tea.KeyMsg{Type: tea.KeyRight})
	if eng.CurrentFrameNum() != 1 {
		t.Errorf("current frame = %d, want 1", eng.CurrentFrameNum())
	}
}

func TestDebugToggle(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	ring := otel.NewRingBuffer(16)
	ring.Push(otel.Event{Kind: otel.KindFetchComplete})
	cfg.Ring = ring
	app, _ := newTestApp(t, cfg)

	if app.debugVisible {
		t.Error("debug should be hidden initially")
	}

	app, _ = clickControl(t, app, ctlDebug)
	if !app.debugVisible {
		t.Fatal("clicking debug should show the overlay")
	}
	if view := app.View(); !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}

	app = update(app, leftClick(0, 0))
	if app.debugVisible {
		t.Error("a click should close the overlay")
	}
}

func TestViewBeforeReady(t *testing.T) {
	app := NewApp(AppConfig{Dataset: "cats", Controller: session.New(engine.NewMemory())})
	if got := app.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestGridViewSelection(t *testing.T) {
	var log fetchLog
	cfg := log.config("cats")
	cfg.View = ViewGrid
	cfg.GridCellWidth = 20
	app, eng := newTestApp(t, cfg)

	app = update(app, StackFetched{Dataset: "cats", Gen: 1, Paths: sixFrames()})
	app = update(app, ResultsFetched{Dataset: "cats", Gen: 1, Entries: []backend.ImageEntry{
		{Idx: 0, Path: "/a.jpg"},
		{Idx: 5, Path: "/b.jpg"},
	}})

	lay := app.layout()
	app = update(app, leftClick(21, lay.viewTop))
	if eng.CurrentFrameNum() != 5 || app.Selected() != 5 {
		t.Errorf("frame = %d, selected = %d, want 5", eng.CurrentFrameNum(), app.Selected())
	}
}
