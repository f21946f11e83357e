package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/activity"
)

const activityLines = 200

type activityMsg struct {
	entries []activity.Entry
	err     error
}

func loadActivity(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return activityMsg{}
		}
		entries, err := activity.Tail(path, activityLines)
		return activityMsg{entries: entries, err: err}
	}
}

// renderActivity shows the newest log entries that fit on screen.
func (m Model) renderActivity() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Recent activity"))
	b.WriteString("\n\n")

	rows := max(1, m.height-6)
	entries := m.activityLog
	if len(entries) > rows {
		entries = entries[len(entries)-rows:]
	}
	if len(entries) == 0 {
		b.WriteString(styles.MutedText.Render("Nothing logged yet"))
	}
	for _, e := range entries {
		b.WriteString(m.renderEntry(e, styles))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		Width(max(20, m.width-2)).
		Height(max(3, m.height-2)).
		Render(b.String())
}

func (m Model) renderEntry(e activity.Entry, styles Styles) string {
	level := styles.MutedText
	switch e.Level {
	case "WARN":
		level = styles.WarningText
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		level = styles.DangerText
	case "INFO":
		level = styles.SuccessText
	}

	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, styles.MutedText.Render(e.Time.Local().Format("15:04:05")))
	}
	if e.Level != "" {
		parts = append(parts, level.Render(e.Level))
	}
	if e.Logger != "" {
		parts = append(parts, styles.AccentText.Render("["+e.Logger+"]"))
	}
	msg := e.Message
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Err != "" {
		msg += ": " + e.Err
	}
	parts = append(parts, styles.Text.Render(truncate(msg, max(10, m.width-32))))
	return strings.Join(parts, " ")
}
