package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"chirp-ranger.dev/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, mode string, ranging bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"R", "ange"},
		{"E", "mit"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := ""
	if ranging {
		status = StyleStatusActive.Render("RANGING")
	} else {
		status = StyleStatusWarn.Render("IDLE")
	}

	modeInfo := StyleMenuLabel.Render(fmt.Sprintf("Mode: %s", mode))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + modeInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	padding := ""
	for i := 0; i < gap; i++ {
		padding += " "
	}

	return StyleMenuBar.Width(width).Render(left + padding + right)
}
