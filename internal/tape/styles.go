package tape

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#7C3AED")
	buyColor     = lipgloss.Color("#10B981")
	sellColor    = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	textColor    = lipgloss.Color("#F9FAFB")
	warnColor    = lipgloss.Color("#F59E0B")
	borderColor  = lipgloss.Color("#374151")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	priceStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	buyStyle   = lipgloss.NewStyle().Bold(true).Foreground(buyColor)
	sellStyle  = lipgloss.NewStyle().Bold(true).Foreground(sellColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
)

func sideStyle(side string) lipgloss.Style {
	if side == "buy" {
		return buyStyle
	}
	return sellStyle
}

func changeStyle(change float64) lipgloss.Style {
	switch {
	case change > 0:
		return buyStyle
	case change < 0:
		return sellStyle
	}
	return mutedStyle
}

func statusStyle(s State) lipgloss.Style {
	switch s {
	case StateSubscribed, StateConnected:
		return buyStyle
	case StateFailed:
		return sellStyle
	}
	return warnStyle
}
