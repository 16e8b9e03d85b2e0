package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"hive/pkg/protocol"
)

// renderAgentsTable renders the agents pane: a table of registered
// agents with their liveness, plus the active reservations each holds.
func renderAgentsTable(agents []protocol.Agent, reservations []protocol.Reservation) string {
	theme := DefaultTheme()

	if len(agents) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Padding(1, 0).
			Render("No agents registered")
	}

	held := make(map[string]int, len(reservations))
	for _, r := range reservations {
		held[r.Holder]++
	}

	columns := []table.Column{
		{Title: "Agent", Width: 24},
		{Title: "Status", Width: 10},
		{Title: "Last Seen", Width: 18},
		{Title: "Holds", Width: 6},
	}

	rows := make([]table.Row, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, table.Row{
			a.Name,
			string(a.Status),
			humanSince(a.LastSeenAt),
			fmt.Sprintf("%d", held[a.Name]),
		})
	}

	height := len(rows)
	if height > 20 {
		height = 20
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(theme.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	return t.View()
}

// humanSince renders a timestamp as a relative age.
func humanSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
