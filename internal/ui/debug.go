package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/forager/internal/otel"
)

// debugPanelChrome is the border plus vertical padding of DebugPanel.
const debugPanelChrome = 4

// problemKinds are the failures listed above the event trail.
var problemKinds = []otel.EventKind{
	otel.KindFetchError,
	otel.KindPollError,
	otel.KindEmbedError,
	otel.KindStackRejected,
	otel.KindStoreError,
}

// debugOverlay renders session counters, the latest failures and the recent
// event trail. It is empty without a ring buffer.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}
	now := time.Now()
	stats := ring.Stats()

	lines := []string{
		DebugHeaderStyle.Render("Session Stats"),
		fmt.Sprintf("  Lifecycle:  %d actions, %d poll errors",
			stats[otel.KindLifecycleAction], stats[otel.KindPollError]),
		fmt.Sprintf("  Fetches:    %d complete, %d errors, %d stale",
			stats[otel.KindFetchComplete], stats[otel.KindFetchError], stats[otel.KindFetchStale]),
		fmt.Sprintf("  Embeddings: %d complete, %d errors",
			stats[otel.KindEmbedComplete], stats[otel.KindEmbedError]),
		fmt.Sprintf("  Session:    %d modes, %d toggles, %d selects, %d stacks",
			stats[otel.KindModeChange], stats[otel.KindToggle], stats[otel.KindSelect], stats[otel.KindStackLoad]),
		fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()),
		"",
		DebugHeaderStyle.Render("Problems"),
	}
	problems := ring.LastOf(3, problemKinds...)
	if len(problems) == 0 {
		lines = append(lines, HintStyle.Render("  none"))
	}
	for _, e := range problems {
		lines = append(lines, eventLine(e, now))
	}

	lines = append(lines, "", DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		lines = append(lines, eventLine(e, now))
	}

	if maxLines := max(height-debugPanelChrome, 1); len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	panelWidth := min(76, width-4)
	if panelWidth < 20 {
		panelWidth = 20
	}
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

func eventLine(e otel.Event, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %4s  %-22s", formatAge(now.Sub(e.Time)), e.Kind)
	if e.Dataset != "" {
		b.WriteString("  " + truncateRunes(e.Dataset, 16))
	}
	if e.Value != "" {
		b.WriteString("  " + truncateRunes(e.Value, 24))
	}
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	return b.String()
}

// formatAge renders how long ago an event happened in whole units. Clock
// skew reads as "now".
func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
}

func debugStatusBar(width int) string {
	return StatusBar.Width(width).Render("  [DEBUG]  " + StatusBarText.Render("click anywhere to close"))
}
