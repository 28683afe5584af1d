// Package scope renders the terminal range display: a horizontal distance
// ruler with the peer's blip and an outward-travelling ping animation.
package scope

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chirp-ranger.dev/internal/config"
)

var (
	styleAxis  = lipgloss.NewStyle().Foreground(lipgloss.Color("#008F11"))
	styleSelf  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF41")).Bold(true)
	stylePeer  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFAA")).Bold(true)
	stylePing  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA22"))
	styleLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#004A0A"))
	styleNoFix = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
)

// Ping animates a chirp travelling away from the local device.
type Ping struct {
	active bool
	pos    float64 // feet
	max    float64
}

// NewPing creates a ping animation bounded at maxRange feet.
func NewPing(maxRange float64) *Ping {
	return &Ping{max: maxRange}
}

// Trigger restarts the animation from the origin.
func (p *Ping) Trigger() {
	p.active = true
	p.pos = 0
}

// Update advances the animation one frame.
func (p *Ping) Update() {
	if !p.active {
		return
	}
	// Scaled well below the true speed of sound so the eye can follow it.
	p.pos += p.max / (2 * float64(config.TargetFPS))
	if p.pos > p.max {
		p.active = false
	}
}

// Render draws the scope into a width x height cell block.
func Render(width, height int, distFt float64, haveFix bool, maxRange float64, ping *Ping) string {
	if width < 12 {
		width = 12
	}
	if height < 4 {
		height = 4
	}

	lane := width - 2
	col := func(feet float64) int {
		c := int(feet / maxRange * float64(lane-1))
		if c < 0 {
			c = 0
		}
		if c > lane-1 {
			c = lane - 1
		}
		return c
	}

	// Blip row: self at the origin, the peer at the measured distance.
	cells := make([]string, lane)
	for i := range cells {
		cells[i] = " "
	}
	if ping != nil && ping.active {
		cells[col(ping.pos)] = stylePing.Render(")")
	}
	cells[0] = styleSelf.Render("◉")
	if haveFix {
		cells[col(distFt)] = stylePeer.Render("◆")
	}
	blips := " " + strings.Join(cells, "")

	// Ruler with a tick every 5 feet.
	ruler := make([]rune, lane)
	for i := range ruler {
		ruler[i] = '─'
	}
	for feet := 0.0; feet <= maxRange; feet += 5 {
		ruler[col(feet)] = '┬'
	}
	axis := " " + styleAxis.Render(string(ruler))

	labels := " " + styleLabel.Render(fmt.Sprintf("0%s%.0f ft", strings.Repeat(" ", max(1, lane-8)), maxRange))

	caption := " " + styleNoFix.Render("no fix")
	if haveFix {
		caption = " " + stylePeer.Render(fmt.Sprintf("peer at %.1f ft", distFt))
	}

	rows := []string{blips, axis, labels, caption}
	for len(rows) < height {
		rows = append(rows, "")
	}
	return strings.Join(rows[:height], "\n")
}
