// Package output provides styled terminal output helpers (success,
// error, warning, operation formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/scribesync/scribe/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	kindStyles   = map[models.OpKind]lipgloss.Style{
		models.OpCreate: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.OpUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.OpDelete: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatConnectivity renders the online/offline badge.
// Reachability is a probe verdict, so "online" here means verified.
func FormatConnectivity(hasConnectivity bool) string {
	if hasConnectivity {
		return onlineStyle.Render("● online")
	}
	return offlineStyle.Render("○ offline")
}

// FormatKind formats an operation kind with color
func FormatKind(k models.OpKind) string {
	style, ok := kindStyles[k]
	if !ok {
		return string(k)
	}
	return style.Render(fmt.Sprintf("[%s]", k))
}

// FormatOperation formats a pending operation as one line
func FormatOperation(op *models.Operation) string {
	var parts []string
	parts = append(parts, titleStyle.Render(fmt.Sprintf("#%d", op.ID)))
	parts = append(parts, FormatKind(op.Kind))
	parts = append(parts, fmt.Sprintf("%s/%d", op.EntityType, op.EntityID))
	parts = append(parts, subtleStyle.Render(FormatTimeAgo(op.RecordedAt)))
	if op.SyncedAt != nil {
		parts = append(parts, successStyle.Render("synced"))
	}
	return strings.Join(parts, "  ")
}

// FormatDraft formats a stored draft as one line
func FormatDraft(d *models.Draft) string {
	preview := d.Content
	if len(preview) > 60 {
		preview = preview[:57] + "..."
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	return fmt.Sprintf("%s  %q  %s",
		titleStyle.Render(d.Scope.String()),
		preview,
		subtleStyle.Render(FormatTimeAgo(d.SavedAt)))
}

// FormatLastSync renders a last-sync marker for status lines.
func FormatLastSync(t *time.Time) string {
	if t == nil {
		return subtleStyle.Render("never")
	}
	return FormatTimeAgo(*t)
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
