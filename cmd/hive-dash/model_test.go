package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hive/pkg/protocol"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelQuitKeys(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q did not produce a command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("q produced %T, want quit", msg)
	}
}

func TestModelTabTogglesView(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")
	if m.activeView != BoardView {
		t.Fatalf("initial view %d, want board", m.activeView)
	}

	next, _ := m.Update(keyMsg("tab"))
	m = next.(Model)
	if m.activeView != AgentsView {
		t.Fatalf("view after tab %d, want agents", m.activeView)
	}

	next, _ = m.Update(keyMsg("a"))
	m = next.(Model)
	if m.activeView != BoardView {
		t.Fatalf("view after a %d, want board again", m.activeView)
	}
}

func TestModelSnapshotUpdatesState(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")

	snap := snapshot{
		agents: []protocol.Agent{{Name: "drone-1", Status: protocol.AgentActive}},
		cells:  []protocol.Cell{{ID: "c-1", Title: "Fix login", Status: protocol.CellOpen}},
	}
	next, _ := m.Update(snapshotMsg{snap: snap})
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "Fix login") {
		t.Errorf("board view missing cell title:\n%s", view)
	}
	if !strings.Contains(view, "p-test") {
		t.Errorf("status bar missing project key:\n%s", view)
	}
}

func TestModelViewShowsStoreError(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")

	next, _ := m.Update(snapshotMsg{err: errors.New("no such file")})
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "store unavailable") {
		t.Errorf("view does not surface the store error:\n%s", view)
	}
}

func TestModelTickRefetches(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")

	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick did not schedule a refetch")
	}
}

func TestStatusBarCounts(t *testing.T) {
	m := newModel("p-test", "/tmp/nope.db")
	m.snap = snapshot{
		agents: []protocol.Agent{
			{Name: "a-1", Status: protocol.AgentActive},
			{Name: "a-2", Status: protocol.AgentActive},
			{Name: "a-3", Status: protocol.AgentGone},
		},
		cells: []protocol.Cell{
			{ID: "c-1", Status: protocol.CellOpen},
			{ID: "c-2", Status: protocol.CellClosed},
		},
		reservations: []protocol.Reservation{{FilePath: "a.go", Holder: "a-1"}},
	}

	bar := m.renderStatusBar()
	for _, want := range []string{"2", "1 gone", "Open cells", "Reservations"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar missing %q:\n%s", want, bar)
		}
	}
}
