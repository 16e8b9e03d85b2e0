package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// snapshotMsg carries a fresh data read. err is set when the project
// database is missing or unreadable.
type snapshotMsg struct {
	snap snapshot
	err  error
}

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchCmd returns a tea.Cmd that reads a snapshot from the store.
func fetchCmd(projectKey, dbPath string) tea.Cmd {
	return func() tea.Msg {
		snap, err := fetchSnapshot(context.Background(), projectKey, dbPath)
		return snapshotMsg{snap: snap, err: err}
	}
}

// ViewType selects the active dashboard pane.
type ViewType int

const (
	// BoardView shows the cell board.
	BoardView ViewType = iota
	// AgentsView shows the agents table.
	AgentsView
)

// Model is the Bubble Tea model for the hive dashboard.
type Model struct {
	projectKey string
	dbPath     string

	activeView ViewType
	snap       snapshot
	err        error

	width  int
	height int
}

// newModel creates a Model for one project store.
func newModel(projectKey, dbPath string) Model {
	return Model{projectKey: projectKey, dbPath: dbPath, activeView: BoardView}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.projectKey, m.dbPath), watchStoreDir(m.dbPath), tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "a":
			if m.activeView == BoardView {
				m.activeView = AgentsView
			} else {
				m.activeView = BoardView
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.snap = msg.snap
		m.err = msg.err

	case fsChangeMsg:
		// The store changed on disk; refetch now and re-arm the watcher.
		return m, tea.Batch(fetchCmd(m.projectKey, m.dbPath), watchStoreDir(m.dbPath))

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.projectKey, m.dbPath), tickCmd())
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	statusBar := m.renderStatusBar()

	if m.err != nil {
		theme := DefaultTheme()
		errStyle := lipgloss.NewStyle().Foreground(theme.Error).Padding(1, 0)
		return statusBar + "\n" + errStyle.Render(fmt.Sprintf("store unavailable: %v", m.err))
	}

	switch m.activeView {
	case AgentsView:
		return statusBar + "\n" + renderAgentsTable(m.snap.agents, m.snap.reservations)
	default:
		board := newBoardModel(m.snap.cells)
		return statusBar + "\n" + board.Render()
	}
}

// renderStatusBar renders the top bar: project key, agent counts, and
// active reservation count.
func (m Model) renderStatusBar() string {
	theme := DefaultTheme()

	var active, gone int
	for _, a := range m.snap.agents {
		switch string(a.Status) {
		case "active":
			active++
		case "gone":
			gone++
		}
	}
	var open int
	for _, c := range m.snap.cells {
		if string(c.Status) != "closed" {
			open++
		}
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("hive "+m.projectKey),
		lipgloss.NewStyle().Render(" | Agents: "),
		lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("%d", active)),
		lipgloss.NewStyle().Render("/"),
		lipgloss.NewStyle().Foreground(theme.Error).Render(fmt.Sprintf("%d gone", gone)),
		lipgloss.NewStyle().Render(" | Open cells: "),
		lipgloss.NewStyle().Foreground(theme.Warning).Render(fmt.Sprintf("%d", open)),
		lipgloss.NewStyle().Render(" | Reservations: "),
		lipgloss.NewStyle().Foreground(theme.Primary).Render(fmt.Sprintf("%d", len(m.snap.reservations))),
		lipgloss.NewStyle().Foreground(theme.Muted).Render("   tab: switch view  q: quit"),
	)
}
