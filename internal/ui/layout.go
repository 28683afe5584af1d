package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the menu bar, body panels and status bar.
func ComposeLayout(menuBar, scopePanel, sidePanel, statusBar string, width int) string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, scopePanel, sidePanel)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, body, statusBar)
}
