package popup

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/threadsweep/pkg/evaluation"
)

var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	cacheStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)

// recommendationStyle colours a recommendation like the page badge.
func recommendationStyle(rec evaluation.Recommendation) lipgloss.Style {
	p := rec.Palette()
	return lipgloss.NewStyle().
		Background(lipgloss.Color(p.Background)).
		Foreground(lipgloss.Color(p.Foreground)).
		Bold(true).
		Padding(0, 1)
}
