package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// captionStarters are the quick-fill openings offered above the text field.
// Good queries generally begin with one of them.
var captionStarters = []struct {
	label string
	text  string
}{
	{"A photo of a(n)...", "A photo of a "},
	{"A photo containing a(n)...", "A photo containing a "},
}

// captionPanel is the caption search popover. It holds the query text and
// the embedding the server generated for it.
type captionPanel struct {
	input     textinput.Model
	spinner   spinner.Model
	open      bool
	loading   bool
	embedding string
	err       error
}

func newCaptionPanel(text string) captionPanel {
	ti := textinput.New()
	ti.Placeholder = "describe what to find"
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = "caption> "
	ti.SetValue(text)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorWarn)

	return captionPanel{input: ti, spinner: s}
}

func (p *captionPanel) Text() string { return p.input.Value() }

// SetText replaces the query. A changed query invalidates the embedding.
func (p *captionPanel) SetText(s string) {
	if s == p.input.Value() {
		return
	}
	p.input.SetValue(s)
	p.input.CursorEnd()
	p.embedding = ""
	p.err = nil
}

// generateLabel is the generate button text for the current state.
func (p *captionPanel) generateLabel() string {
	if p.embedding != "" {
		return "ready to query"
	}
	return "generate embedding"
}

func (p *captionPanel) canGenerate() bool {
	return strings.TrimSpace(p.input.Value()) != "" && !p.loading && p.embedding == ""
}

// begin marks a request in flight and returns the text to embed.
func (p *captionPanel) begin() string {
	p.loading = true
	p.err = nil
	return p.input.Value()
}

// settle applies a finished request. A result for text that has since been
// edited is dropped and reported as false.
func (p *captionPanel) settle(msg EmbeddingFetched) bool {
	p.loading = false
	if msg.Text != p.input.Value() {
		return false
	}
	if msg.Err != nil {
		p.err = msg.Err
		return true
	}
	p.embedding = msg.Embedding
	return true
}

func (p *captionPanel) focused() bool { return p.open && p.input.Focused() }

// toggle opens or closes the popover. An opened popover takes keyboard
// focus only when typable is set.
func (p *captionPanel) toggle(typable bool) tea.Cmd {
	if p.open {
		p.open = false
		p.input.Blur()
		return nil
	}
	p.open = true
	if typable {
		return p.input.Focus()
	}
	return nil
}

// blur hands the keyboard back to the engine without closing the popover.
func (p *captionPanel) blur() { p.input.Blur() }

// updateInput feeds a key to the text field and keeps the embedding in sync
// with the edited text.
func (p *captionPanel) updateInput(msg tea.Msg) tea.Cmd {
	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.embedding = ""
		p.err = nil
	}
	return cmd
}

// view renders the popover body above the generate button row.
func (p *captionPanel) view(width int) []string {
	lines := []string{p.input.View()}
	switch {
	case p.loading:
		lines = append(lines, p.spinner.View()+HintStyle.Render(" generating embedding"))
	case p.err != nil:
		lines = append(lines, renderError("Error: "+p.err.Error(), width))
	case p.embedding != "":
		lines = append(lines, HintStyle.Render(truncateRunes("embedding "+p.embedding, width)))
	default:
		lines = append(lines, HintStyle.Render("no embedding yet"))
	}
	for i, l := range lines {
		lines[i] = PopoverStyle.Render(l)
	}
	return lines
}
