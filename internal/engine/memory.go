package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// crosshairStep is how far h/j/k/l move the crosshair, in normalized units.
const crosshairStep = 0.05

type opKind int

const (
	opBox opKind = iota
	opPoint
)

type memFrame struct {
	record   ImageRecord
	boxes    []Box
	points   []Point
	category string
	ops      []opKind // undo history, most recent last
}

// Memory is an in-process annotation engine for the terminal.
//
// Keys: left/right step frames, home/end jump, h/j/k/l move the crosshair,
// space or enter clicks at the crosshair, 1-9 pick a per-frame category,
// backspace or ctrl+z undo, esc drops a half-drawn box.
type Memory struct {
	canvas      Canvas
	initialized bool

	frames  []memFrame
	current int

	mode       Mode
	categories Categories
	extremeViz bool
	letterbox  bool
	playAudio  bool

	cursor  Point
	pending []Point
	held    map[string]bool
	chimes  int
}

// NewMemory returns an uninitialized Memory engine.
func NewMemory() *Memory {
	return &Memory{
		cursor: Point{X: 0.5, Y: 0.5},
		held:   make(map[string]bool),
	}
}

// Init binds the engine to a canvas.
func (m *Memory) Init(canvas Canvas) error {
	m.canvas = canvas
	m.initialized = true
	return nil
}

// LoadImageStack replaces the working set. The current frame number is kept,
// clamped to the new stack.
func (m *Memory) LoadImageStack(records []ImageRecord) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if len(records) == 0 {
		return ErrEmptyStack
	}
	for i, r := range records {
		if r.SourceLocation == "" {
			return fmt.Errorf("%w: frame %d", ErrInvalidRecord, i)
		}
	}

	frames := make([]memFrame, len(records))
	for i, r := range records {
		frames[i] = memFrame{record: r}
	}
	m.frames = frames
	if m.current >= len(frames) {
		m.current = len(frames) - 1
	}
	m.pending = nil
	return nil
}

// SetCurrentFrameNum moves to frame index. Out-of-range indices are ignored.
func (m *Memory) SetCurrentFrameNum(index int) {
	if index < 0 || index >= len(m.frames) {
		return
	}
	m.current = index
	m.pending = nil
}

// CurrentFrameNum returns the current frame index.
func (m *Memory) CurrentFrameNum() int { return m.current }

// CurrentRecord returns the record of the current frame.
func (m *Memory) CurrentRecord() (ImageRecord, bool) {
	if len(m.frames) == 0 {
		return ImageRecord{}, false
	}
	return m.frames[m.current].record, true
}

// FrameCount returns the size of the working set.
func (m *Memory) FrameCount() int { return len(m.frames) }

func (m *Memory) SetAnnotationMode(mode Mode) {
	m.mode = mode
	m.pending = nil
}

// Mode returns the active annotation mode.
func (m *Memory) Mode() Mode { return m.mode }

func (m *Memory) SetCategories(categories Categories) {
	cp := make(Categories, len(categories))
	for k, v := range categories {
		cp[k] = v
	}
	m.categories = cp
}

// Categories returns a copy of the installed categories.
func (m *Memory) Categories() Categories {
	cp := make(Categories, len(m.categories))
	for k, v := range m.categories {
		cp[k] = v
	}
	return cp
}

func (m *Memory) SetExtremePointsVisualization(visible bool) { m.extremeViz = visible }
func (m *Memory) SetLetterboxView(letterbox bool)            { m.letterbox = letterbox }
func (m *Memory) SetPlayAudio(play bool)                     { m.playAudio = play }

// ClearBoxes drops every annotation on every frame.
func (m *Memory) ClearBoxes() {
	for i := range m.frames {
		f := &m.frames[i]
		f.boxes, f.points, f.ops, f.category = nil, nil, nil, ""
	}
	m.pending = nil
}

// GetAnnotations returns the annotations of every frame that has any.
func (m *Memory) GetAnnotations() Annotations {
	out := Annotations{Frames: []FrameAnnotations{}}
	for i, f := range m.frames {
		fa := FrameAnnotations{
			Frame:    i,
			Source:   f.record.SourceLocation,
			Boxes:    append([]Box(nil), f.boxes...),
			Points:   append([]Point(nil), f.points...),
			Category: f.category,
		}
		if fa.Empty() {
			continue
		}
		out.Frames = append(out.Frames, fa)
	}
	return out
}

func (m *Memory) HandleKeyDown(ev *KeyEvent) {
	m.held[ev.Key] = true

	switch ev.Key {
	case "right":
		m.SetCurrentFrameNum(m.current + 1)
	case "left":
		m.SetCurrentFrameNum(m.current - 1)
	case "home":
		m.SetCurrentFrameNum(0)
	case "end":
		m.SetCurrentFrameNum(len(m.frames) - 1)
	case "h":
		m.cursor.X = clamp01(m.cursor.X - crosshairStep)
	case "l":
		m.cursor.X = clamp01(m.cursor.X + crosshairStep)
	case "k":
		m.cursor.Y = clamp01(m.cursor.Y - crosshairStep)
	case "j":
		m.cursor.Y = clamp01(m.cursor.Y + crosshairStep)
	case " ", "enter":
		m.click(m.cursor)
	case "backspace", "ctrl+z":
		m.undo()
	case "esc":
		m.pending = nil
	default:
		if n, err := strconv.Atoi(ev.Key); err == nil && n >= 1 && n <= 9 {
			m.pickCategory(n)
		}
	}
}

func (m *Memory) HandleKeyUp(ev *KeyEvent) {
	delete(m.held, ev.Key)
}

// Held reports whether key has gone down without a matching key-up.
func (m *Memory) Held(key string) bool { return m.held[key] }

// Cursor returns the crosshair position.
func (m *Memory) Cursor() Point { return m.cursor }

// Pending returns the clicks of a box that is still being drawn.
func (m *Memory) Pending() []Point { return append([]Point(nil), m.pending...) }

func (m *Memory) click(p Point) {
	if len(m.frames) == 0 {
		return
	}
	f := &m.frames[m.current]

	switch m.mode {
	case ModePoint:
		f.points = append(f.points, p)
		f.ops = append(f.ops, opPoint)
		m.chime()
	case ModeTwoPointsBBox:
		m.pending = append(m.pending, p)
		if len(m.pending) == 2 {
			f.boxes = append(f.boxes, boundingBox(m.pending))
			f.ops = append(f.ops, opBox)
			m.pending = nil
			m.chime()
		}
	case ModeExtremePointsBBox:
		m.pending = append(m.pending, p)
		if len(m.pending) == 4 {
			box := boundingBox(m.pending)
			box.ExtremePoints = append([]Point(nil), m.pending...)
			f.boxes = append(f.boxes, box)
			f.ops = append(f.ops, opBox)
			m.pending = nil
			m.chime()
		}
	case ModePerFrameCategory:
		// categories are chosen with number keys
	}
}

func (m *Memory) pickCategory(idx int) {
	if m.mode != ModePerFrameCategory || len(m.frames) == 0 {
		return
	}
	for name, c := range m.categories {
		if c.Idx != idx {
			continue
		}
		f := &m.frames[m.current]
		if f.category == name {
			f.category = ""
		} else {
			f.category = name
			m.chime()
		}
		return
	}
}

func (m *Memory) undo() {
	if len(m.pending) > 0 {
		m.pending = m.pending[:len(m.pending)-1]
		return
	}
	if len(m.frames) == 0 {
		return
	}
	f := &m.frames[m.current]
	if len(f.ops) == 0 {
		return
	}
	last := f.ops[len(f.ops)-1]
	f.ops = f.ops[:len(f.ops)-1]
	switch last {
	case opBox:
		f.boxes = f.boxes[:len(f.boxes)-1]
	case opPoint:
		f.points = f.points[:len(f.points)-1]
	}
}

func (m *Memory) chime() {
	if m.playAudio {
		m.chimes++
	}
}

// Render draws the current frame as text: a header line followed by the
// canvas with boxes, points and the crosshair.
func (m *Memory) Render(width, height int) string {
	if width < 8 || height < 3 {
		return ""
	}
	if len(m.frames) == 0 {
		return "no images loaded"
	}

	f := m.frames[m.current]
	view := "scaled"
	if m.letterbox {
		view = "letterbox"
	}
	header := fmt.Sprintf("frame %d/%d  %s", m.current+1, len(m.frames), f.record.SourceLocation)
	status := fmt.Sprintf("%s · %s", m.mode, view)
	if m.mode == ModePerFrameCategory {
		var keys []string
		for _, name := range m.CategoryNames() {
			keys = append(keys, fmt.Sprintf("%d:%s", m.categories[name].Idx, name))
		}
		status += " [" + strings.Join(keys, " ") + "]"
	}
	if f.category != "" {
		status += " · " + f.category
	}
	if m.playAudio && m.chimes > 0 {
		status += " · ♪"
	}

	rows := height - 2
	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}

	// Terminal cells are roughly twice as tall as wide; letterboxing keeps
	// a 4:3 image region centered.
	x0, y0, w, h := 0, 0, width, rows
	if m.letterbox {
		if want := rows * 8 / 3; want < width {
			w = want
			x0 = (width - w) / 2
		} else if want := width * 3 / 8; want < rows {
			h = want
			y0 = (rows - h) / 2
		}
	}
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			grid[y][x] = '·'
		}
	}

	plot := func(p Point, r rune) {
		x := x0 + int(p.X*float64(w-1)+0.5)
		y := y0 + int(p.Y*float64(h-1)+0.5)
		if y >= 0 && y < rows && x >= 0 && x < width {
			grid[y][x] = r
		}
	}

	for _, b := range f.boxes {
		drawBox(grid, b, x0, y0, w, h)
		if m.extremeViz {
			for _, p := range b.ExtremePoints {
				plot(p, 'x')
			}
		}
	}
	for _, p := range f.points {
		plot(p, '*')
	}
	for _, p := range m.pending {
		plot(p, 'o')
	}
	plot(m.cursor, '+')

	lines := make([]string, 0, height)
	lines = append(lines, truncate(header, width), truncate(status, width))
	for _, row := range grid {
		lines = append(lines, string(row))
	}
	return strings.Join(lines, "\n")
}

func drawBox(grid [][]rune, b Box, x0, y0, w, h int) {
	left := x0 + int(b.Min.X*float64(w-1)+0.5)
	right := x0 + int(b.Max.X*float64(w-1)+0.5)
	top := y0 + int(b.Min.Y*float64(h-1)+0.5)
	bottom := y0 + int(b.Max.Y*float64(h-1)+0.5)

	set := func(x, y int, r rune) {
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
			grid[y][x] = r
		}
	}
	for x := left; x <= right; x++ {
		set(x, top, '-')
		set(x, bottom, '-')
	}
	for y := top; y <= bottom; y++ {
		set(left, y, '|')
		set(right, y, '|')
	}
	set(left, top, '+')
	set(right, top, '+')
	set(left, bottom, '+')
	set(right, bottom, '+')
}

// CategoryNames returns installed category names ordered by index.
func (m *Memory) CategoryNames() []string {
	names := make([]string, 0, len(m.categories))
	for name := range m.categories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.categories[names[i]].Idx < m.categories[names[j]].Idx
	})
	return names
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

var _ Engine = (*Memory)(nil)
var _ Renderer = (*Memory)(nil)
