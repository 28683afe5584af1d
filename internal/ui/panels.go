package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// RenderScopePanel wraps the rendered scope in a titled border.
func RenderScopePanel(width, height int, content string) string {
	title := StylePanelTitle.Render("RANGE SCOPE")
	body := lipgloss.JoinVertical(lipgloss.Left, title, content)
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(body)
}

// RenderReadout renders the distance panel: latest and smoothed measurement,
// the min/max spread of the recent history, and a history sparkline.
func RenderReadout(width, height int, last, smoothed float64, have bool, history []float64, lo, hi float64) string {
	title := StylePanelTitle.Render("DISTANCE")

	lines := []string{title}
	if have {
		lines = append(lines,
			" "+StyleReadout.Render(fmt.Sprintf("%6.1f ft", smoothed)),
			" "+StyleReadoutDim.Render(fmt.Sprintf("last %.2f ft", last)),
			" "+StyleReadoutDim.Render(fmt.Sprintf("min %.1f  max %.1f", lo, hi)),
		)
	} else {
		lines = append(lines,
			" "+StyleReadoutDim.Render("  --.- ft"),
			" "+StyleReadoutDim.Render("waiting for fix"),
		)
	}
	lines = append(lines, " "+StyleSparkline.Render(sparkline(history, width-6)))

	body := strings.Join(lines, "\n")
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(body)
}

// RenderLog renders the most recent event lines that fit the panel.
func RenderLog(width, height int, lines []string) string {
	title := StylePanelTitle.Render("EVENTS")

	visible := height - 3
	if visible < 1 {
		visible = 1
	}
	start := len(lines) - visible
	if start < 0 {
		start = 0
	}

	limit := width - 4
	if limit < 1 {
		limit = 1
	}
	out := []string{title}
	for _, l := range lines[start:] {
		// Escape-sequence-aware: a byte slice could cut inside a color code.
		l = ansi.Truncate(l, limit, "")
		out = append(out, " "+l)
	}

	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(strings.Join(out, "\n"))
}

// sparkline draws values scaled into block glyphs, newest on the right.
func sparkline(values []float64, width int) string {
	if width < 1 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if span > 1e-9 {
			idx = int((v - lo) / span * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
