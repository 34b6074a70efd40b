package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
	colorError     = lipgloss.Color("196") // Red
)

// HeaderStyle for the top title line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// Badge styles for lifecycle status in the header.
var (
	BadgeIdle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	BadgeBusy = lipgloss.NewStyle().
			Foreground(colorWarn).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	BadgeReady = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Background(lipgloss.Color("236")).
			Bold(true).
			Padding(0, 1)
)

// ButtonStyle for an enabled control.
var ButtonStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("238"))

// ButtonActiveStyle for a control whose state is "on" (e.g. debug open).
var ButtonActiveStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Bold(true)

// ButtonDisabledStyle for a control that cannot be used right now.
var ButtonDisabledStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Background(lipgloss.Color("235"))

// CanvasBorder frames the labeling canvas.
var CanvasBorder = lipgloss.NewStyle().
	Foreground(colorSecondary)

// SelectedItem style for the selected image entry.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

// NormalItem style for other image entries.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// ThumbStyle for the placeholder thumbnail block.
var ThumbStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

// IdxStyle for the frame index badge.
var IdxStyle = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// PopoverStyle for the caption search panel.
var PopoverStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("237"))

// HintStyle for helper text.
var HintStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
