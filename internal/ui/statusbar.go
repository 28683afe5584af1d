package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, calibrated bool, noiseFloor float64, attempts, failures int, snrDb float64) string {
	status := ""
	if calibrated {
		status = StyleStatusActive.Render("[CALIBRATED]")
	} else {
		status = StyleStatusWarn.Render("[CALIBRATING]")
	}

	info := fmt.Sprintf(" Floor: %.4f  SNR: %.1f dB  Attempts: %d  Failed: %d",
		noiseFloor, snrDb, attempts, failures)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}
	padding := ""
	for i := 0; i < gap; i++ {
		padding += " "
	}

	return StyleStatusBar.Width(width).Render(content + padding)
}
