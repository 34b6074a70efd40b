package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// controlID names a clickable control.
type controlID int

const (
	ctlMode controlID = iota
	ctlExtremePoints
	ctlLetterbox
	ctlSound
	ctlClear
	ctlExport
	ctlWorkspace
	ctlStartCluster
	ctlBuildIndex
	ctlCaption
	ctlReload
	ctlDebug
	ctlGenerate
	ctlStarterPhotoOf
	ctlStarterContaining
)

// starterControls maps the caption quick-fill buttons to captionStarters.
var starterControls = []controlID{ctlStarterPhotoOf, ctlStarterContaining}

// control is one button as rendered this frame. Labels are derived from
// session state on every render; controls keep nothing between frames.
type control struct {
	id       controlID
	label    string
	disabled bool
	active   bool
}

// hitbox is the screen region of a rendered control. x1 is exclusive.
type hitbox struct {
	id     controlID
	x0, x1 int
	y      int
}

func (c control) render() string {
	text := "[ " + c.label + " ]"
	switch {
	case c.disabled:
		return ButtonDisabledStyle.Render(text)
	case c.active:
		return ButtonActiveStyle.Render(text)
	default:
		return ButtonStyle.Render(text)
	}
}

// layoutControls lays controls left to right, wrapping at width. It returns
// one string per row and the hitbox of every enabled control, with y offset
// by top.
func layoutControls(ctls []control, width, top int) ([]string, []hitbox) {
	if width < 1 {
		width = 1
	}
	var (
		rows []string
		hits []hitbox
		row  strings.Builder
		x    int
	)
	flush := func() {
		rows = append(rows, row.String())
		row.Reset()
		x = 0
	}
	for _, c := range ctls {
		btn := c.render()
		w := lipgloss.Width(btn)
		if x > 0 && x+1+w > width {
			flush()
		}
		if x > 0 {
			row.WriteString(" ")
			x++
		}
		if !c.disabled {
			hits = append(hits, hitbox{id: c.id, x0: x, x1: x + w, y: top + len(rows)})
		}
		row.WriteString(btn)
		x += w
	}
	if x > 0 || len(rows) == 0 {
		flush()
	}
	return rows, hits
}

// hitTest returns the control under (x, y).
func hitTest(hits []hitbox, x, y int) (controlID, bool) {
	for _, h := range hits {
		if y == h.y && x >= h.x0 && x < h.x1 {
			return h.id, true
		}
	}
	return 0, false
}

// nextToken returns the token after cur in tokens, wrapping around.
// An unknown cur yields the first token.
func nextToken(tokens []string, cur string) string {
	if len(tokens) == 0 {
		return cur
	}
	for i, t := range tokens {
		if t == cur {
			return tokens[(i+1)%len(tokens)]
		}
	}
	return tokens[0]
}
