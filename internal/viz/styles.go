package viz

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688")).
			Italic(true)
)

var statusStyles = map[string]lipgloss.Style{
	"configured": lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")),
	"running":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88")),
	"completed":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff")),
	"failed":     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")),
}

func statusBadge(s string) string {
	style, ok := statusStyles[s]
	if !ok {
		style = statusStyles["configured"]
	}
	return style.Render(s)
}
