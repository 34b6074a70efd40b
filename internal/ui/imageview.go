package ui

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/forager/internal/backend"
)

// ImageView renders a dataset's image list and maps clicks to entries.
type ImageView interface {
	Dataset() string
	// Begin starts a new fetch and returns its generation.
	Begin() uint64
	// Accept applies a fetch result. It reports false for a stale result,
	// which is dropped.
	Accept(msg ResultsFetched) bool
	Loading() bool
	Err() error
	Entries() []backend.ImageEntry
	Scroll(delta int)
	// Render draws the view; selected is the idx of the current frame or -1.
	Render(width, height, selected int) string
	// EntryAt returns the entry drawn at (x, y), relative to a view of the
	// given size.
	EntryAt(x, y, width, height int) (backend.ImageEntry, bool)
}

// imageList is the fetch state shared by both views.
type imageList struct {
	dataset string
	gen     uint64
	entries []backend.ImageEntry
	loading bool
	err     error
	offset  int // first visible row
}

func (l *imageList) Dataset() string               { return l.dataset }
func (l *imageList) Loading() bool                 { return l.loading }
func (l *imageList) Err() error                    { return l.err }
func (l *imageList) Entries() []backend.ImageEntry { return l.entries }

func (l *imageList) scrollBy(delta, rows, visible int) {
	l.offset = clampOffset(l.offset+delta, rows, visible)
}

func (l *imageList) Begin() uint64 {
	l.gen++
	l.loading = true
	return l.gen
}

func (l *imageList) Accept(msg ResultsFetched) bool {
	if msg.Dataset != l.dataset || msg.Gen != l.gen {
		return false
	}
	l.loading = false
	if msg.Err != nil {
		l.err = msg.Err
		return true
	}
	l.err = nil
	l.entries = msg.Entries
	l.offset = 0
	return true
}

// status renders the non-list states; ok is false when entries should be drawn.
func (l *imageList) status(width int) (string, bool) {
	switch {
	case l.loading && len(l.entries) == 0:
		return HintStyle.Render(truncateRunes("Loading "+l.dataset+"...", width)), true
	case l.err != nil && len(l.entries) == 0:
		return renderError("Error: "+l.err.Error(), width), true
	case len(l.entries) == 0:
		return HintStyle.Render(truncateRunes("No images in "+l.dataset, width)), true
	}
	return "", false
}

func clampOffset(offset, rows, visible int) int {
	maxOffset := rows - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// ColumnView shows one entry per row: an index badge, the file name and a
// placeholder thumbnail ImageHeight lines tall.
type ColumnView struct {
	imageList
	imageHeight int
	lastHeight  int
}

// NewColumnView creates a column view for dataset.
func NewColumnView(dataset string, imageHeight int) *ColumnView {
	if imageHeight < 1 {
		imageHeight = 1
	}
	return &ColumnView{imageList: imageList{dataset: dataset}, imageHeight: imageHeight}
}

func (v *ColumnView) visibleRows(height int) int {
	n := height / v.imageHeight
	if n < 1 {
		n = 1
	}
	return n
}

// Scroll moves the view by delta entries.
func (v *ColumnView) Scroll(delta int) {
	v.scrollBy(delta, len(v.entries), v.visibleRows(v.lastHeight))
}

// Render draws the column.
func (v *ColumnView) Render(width, height, selected int) string {
	v.lastHeight = height
	if s, ok := v.status(width); ok {
		return s
	}

	rows := v.visibleRows(height)
	v.offset = clampOffset(v.offset, len(v.entries), rows)

	var lines []string
	for i := v.offset; i < len(v.entries) && i < v.offset+rows; i++ {
		lines = append(lines, renderEntry(v.entries[i], width, v.imageHeight, v.entries[i].Idx == selected)...)
	}
	return strings.Join(lines, "\n")
}

// EntryAt maps a click to an entry.
func (v *ColumnView) EntryAt(x, y, width, height int) (backend.ImageEntry, bool) {
	if x < 0 || x >= width || y < 0 || y >= height {
		return backend.ImageEntry{}, false
	}
	row := y / v.imageHeight
	i := v.offset + row
	if i >= len(v.entries) || row >= v.visibleRows(height) {
		return backend.ImageEntry{}, false
	}
	return v.entries[i], true
}

// GridView tiles entries in fixed-width cells.
type GridView struct {
	imageList
	cellWidth   int
	imageHeight int
	lastWidth   int
	lastHeight  int
}

// NewGridView creates a grid view for dataset.
func NewGridView(dataset string, cellWidth, imageHeight int) *GridView {
	if cellWidth < 8 {
		cellWidth = 8
	}
	if imageHeight < 1 {
		imageHeight = 1
	}
	return &GridView{imageList: imageList{dataset: dataset}, cellWidth: cellWidth, imageHeight: imageHeight}
}

func (v *GridView) columns(width int) int {
	n := width / v.cellWidth
	if n < 1 {
		n = 1
	}
	return n
}

func (v *GridView) rowCount(width int) int {
	cols := v.columns(width)
	return (len(v.entries) + cols - 1) / cols
}

func (v *GridView) visibleRows(height int) int {
	n := height / v.imageHeight
	if n < 1 {
		n = 1
	}
	return n
}

// Scroll moves the view by delta rows.
func (v *GridView) Scroll(delta int) {
	v.scrollBy(delta, v.rowCount(v.lastWidth), v.visibleRows(v.lastHeight))
}

// Render draws the grid.
func (v *GridView) Render(width, height, selected int) string {
	v.lastWidth, v.lastHeight = width, height
	if s, ok := v.status(width); ok {
		return s
	}

	cols := v.columns(width)
	rows := v.visibleRows(height)
	v.offset = clampOffset(v.offset, v.rowCount(width), rows)

	var out []string
	for r := v.offset; r < v.offset+rows; r++ {
		start := r * cols
		if start >= len(v.entries) {
			break
		}
		cells := make([]string, 0, cols)
		for c := 0; c < cols && start+c < len(v.entries); c++ {
			e := v.entries[start+c]
			cell := strings.Join(renderEntry(e, v.cellWidth-1, v.imageHeight, e.Idx == selected), "\n")
			cells = append(cells, lipgloss.NewStyle().Width(v.cellWidth).Render(cell))
		}
		out = append(out, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(out, "\n")
}

// EntryAt maps a click to an entry.
func (v *GridView) EntryAt(x, y, width, height int) (backend.ImageEntry, bool) {
	if x < 0 || y < 0 || x >= width || y >= height {
		return backend.ImageEntry{}, false
	}
	cols := v.columns(width)
	col := x / v.cellWidth
	if col >= cols || y/v.imageHeight >= v.visibleRows(height) {
		return backend.ImageEntry{}, false
	}
	i := (v.offset+y/v.imageHeight)*cols + col
	if i >= len(v.entries) {
		return backend.ImageEntry{}, false
	}
	return v.entries[i], true
}

// renderEntry draws one entry as height lines of at most width columns.
func renderEntry(e backend.ImageEntry, width, height int, selected bool) []string {
	style := NormalItem
	if selected {
		style = SelectedItem
	}
	badge := fmt.Sprintf("#%d", e.Idx)
	name := truncateRunes(path.Base(e.Path), width-len(badge)-1)
	lines := []string{IdxStyle.Render(badge) + " " + style.Render(name)}
	thumbWidth := width
	if thumbWidth > 16 {
		thumbWidth = 16
	}
	for i := 1; i < height; i++ {
		fill := "░"
		if selected {
			fill = "▓"
		}
		lines = append(lines, ThumbStyle.Render(strings.Repeat(fill, max(thumbWidth, 0))))
	}
	return lines
}

// renderError draws s in ErrorStyle within width columns, padding included.
func renderError(s string, width int) string {
	return ErrorStyle.Render(truncateRunes(s, width-ErrorStyle.GetHorizontalPadding()))
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
