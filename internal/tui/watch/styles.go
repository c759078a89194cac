package watch

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/scribesync/scribe/internal/models"
)

var (
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	onlineStyle  = lipgloss.NewStyle().Foreground(successColor)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
	syncingStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)

	kindStyles = map[models.OpKind]lipgloss.Style{
		models.OpCreate: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.OpUpdate: lipgloss.NewStyle().Foreground(warningColor),
		models.OpDelete: lipgloss.NewStyle().Foreground(errorColor),
	}
)

// formatKind renders an operation kind with color
func formatKind(k models.OpKind) string {
	style, ok := kindStyles[k]
	if !ok {
		return string(k)
	}
	return style.Render(string(k))
}

// connectivityBadge renders the probe-verified reachability state
func connectivityBadge(hasConnectivity bool) string {
	if hasConnectivity {
		return onlineStyle.Render("● online")
	}
	return offlineStyle.Render("○ offline")
}
