package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderView draws the full dashboard.
func (m Model) renderView() string {
	if m.Width > 0 && m.Width < MinWidth {
		return "Terminal too narrow. Resize to at least 40 columns.\n"
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusPanel())
	sections = append(sections, m.renderQueuePanel())
	if m.ShowHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("  q quit · s sync · p probe · o toggle online · ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("scribe watch")
	server := subtleStyle.Render(m.Status.ServerURL)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", server)
}

func (m Model) renderStatusPanel() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s  %s\n", subtleStyle.Render("connectivity"), connectivityBadge(m.Status.HasConnectivity)))

	platform := "online"
	if !m.Status.PlatformOnline {
		platform = "offline"
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", subtleStyle.Render("platform    "), platform))

	if m.Status.IsSyncing {
		b.WriteString(fmt.Sprintf("%s  %s %s\n", subtleStyle.Render("sync        "), m.Spinner.View(), syncingStyle.Render("in progress")))
	} else {
		b.WriteString(fmt.Sprintf("%s  idle\n", subtleStyle.Render("sync        ")))
	}

	if m.Status.HasSynced {
		b.WriteString(fmt.Sprintf("%s  %s\n", subtleStyle.Render("last sync   "), formatDuration(m.Status.TimeSinceLastSync)+" ago"))
	} else {
		b.WriteString(fmt.Sprintf("%s  never\n", subtleStyle.Render("last sync   ")))
	}

	b.WriteString(fmt.Sprintf("%s  %d pending, %d synced", subtleStyle.Render("operations  "), m.Status.PendingCount, m.Status.SyncedCount))

	if m.LastErr != nil {
		b.WriteString("\n" + errorStyle.Render("error: "+m.LastErr.Error()))
	} else if m.LastNote != "" {
		b.WriteString("\n" + subtleStyle.Render(m.LastNote))
	}

	return panelStyle.Render(panelTitleStyle.Render(" Status ") + "\n" + b.String())
}

func (m Model) renderQueuePanel() string {
	var b strings.Builder

	if len(m.Pending) == 0 {
		b.WriteString(subtleStyle.Render("nothing waiting"))
	} else {
		max := len(m.Pending)
		if max > 10 {
			max = 10
		}
		for _, op := range m.Pending[:max] {
			b.WriteString(fmt.Sprintf("#%-4d %s %s/%d  %s\n",
				op.ID,
				formatKind(op.Kind),
				op.EntityType,
				op.EntityID,
				timestampStyle.Render(op.RecordedAt.Format("15:04:05")),
			))
		}
		if len(m.Pending) > max {
			b.WriteString(subtleStyle.Render(fmt.Sprintf("... and %d more", len(m.Pending)-max)))
		}
	}

	return panelStyle.Render(panelTitleStyle.Render(" Pending queue ") + "\n" + strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderHelp() string {
	lines := []string{
		"q, ctrl+c  quit",
		"s          trigger a sync attempt",
		"p          probe the server now",
		"o          simulate platform online/offline",
		"?          toggle this help",
	}
	return panelStyle.Render(panelTitleStyle.Render(" Keys ") + "\n" + helpStyle.Render(strings.Join(lines, "\n")))
}

// formatDuration renders a duration in coarse human units.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
