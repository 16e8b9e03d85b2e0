package main

import (
	"strings"
	"testing"

	"hive/pkg/protocol"
)

func TestBoardColumnsRendered(t *testing.T) {
	cells := []protocol.Cell{
		{ID: "c-1", Title: "Fix login", Status: protocol.CellOpen},
		{ID: "c-2", Title: "Add search", Status: protocol.CellInProgress},
		{ID: "c-3", Title: "DB migration", Status: protocol.CellBlocked},
	}

	output := newBoardModel(cells).Render()

	for _, header := range []string{"Open", "In Progress", "Blocked", "Done"} {
		if !strings.Contains(output, header) {
			t.Errorf("Render() missing column header %q\ngot:\n%s", header, output)
		}
	}
}

func TestBoardCellInCorrectColumn(t *testing.T) {
	cells := []protocol.Cell{
		{ID: "cell-open", Title: "Open task", Status: protocol.CellOpen},
		{ID: "cell-wip", Title: "WIP task", Status: protocol.CellInProgress},
		{ID: "cell-block", Title: "Stuck task", Status: protocol.CellBlocked},
	}

	output := newBoardModel(cells).Render()

	for _, c := range cells {
		if !strings.Contains(output, c.Title) {
			t.Errorf("Render() missing cell title %q\ngot:\n%s", c.Title, output)
		}
		if !strings.Contains(output, shortID(c.ID)) {
			t.Errorf("Render() missing cell id %q\ngot:\n%s", shortID(c.ID), output)
		}
	}

	openIdx := strings.Index(output, "Open")
	inProgIdx := strings.Index(output, "In Progress")
	blockedIdx := strings.Index(output, "Blocked")
	doneIdx := strings.Index(output, "Done")
	if openIdx == -1 || inProgIdx == -1 || blockedIdx == -1 || doneIdx == -1 {
		t.Fatalf("missing column headers in output:\n%s", output)
	}
	if openIdx >= inProgIdx || inProgIdx >= blockedIdx || blockedIdx >= doneIdx {
		t.Errorf("column ordering incorrect: Open=%d, InProg=%d, Blocked=%d, Done=%d",
			openIdx, inProgIdx, blockedIdx, doneIdx)
	}
}

func TestBoardEmptyCells(t *testing.T) {
	output := newBoardModel(nil).Render()

	for _, header := range []string{"Open", "In Progress", "Blocked", "Done"} {
		if !strings.Contains(output, header) {
			t.Errorf("Render() with no cells missing column header %q\ngot:\n%s", header, output)
		}
	}
}

func TestBoardDoneColumnCapped(t *testing.T) {
	cells := make([]protocol.Cell, 0, 15)
	for i := 0; i < 15; i++ {
		cells = append(cells, protocol.Cell{
			ID:     "done-cell-" + string(rune('a'+i)),
			Title:  "Closed task " + string(rune('A'+i)),
			Status: protocol.CellClosed,
		})
	}

	output := newBoardModel(cells).Render()

	if !strings.Contains(output, "Done (10/15)") {
		t.Errorf("Done header should show the visible/total count\ngot:\n%s", output)
	}
	for i := 0; i < 10; i++ {
		title := "Closed task " + string(rune('A'+i))
		if !strings.Contains(output, title) {
			t.Errorf("Done column missing %q", title)
		}
	}
	for i := 10; i < 15; i++ {
		title := "Closed task " + string(rune('A'+i))
		if strings.Contains(output, title) {
			t.Errorf("Done column should cap at 10, found %q", title)
		}
	}
}

func TestBoardChildCellsMarked(t *testing.T) {
	cells := []protocol.Cell{
		{ID: "epic-1", Title: "The epic", Status: protocol.CellOpen},
		{ID: "child-1", Title: "Subtask", Status: protocol.CellOpen, Parent: "epic-1"},
	}

	output := newBoardModel(cells).Render()

	if !strings.Contains(output, "· Subtask") {
		t.Errorf("child cell not marked as nested\ngot:\n%s", output)
	}
}

func TestColumnForStatus(t *testing.T) {
	cases := []struct {
		status protocol.CellStatus
		want   string
	}{
		{protocol.CellOpen, "Open"},
		{protocol.CellInProgress, "In Progress"},
		{protocol.CellBlocked, "Blocked"},
		{protocol.CellClosed, "Done"},
	}
	for _, tc := range cases {
		if got := columnForStatus(tc.status); got != tc.want {
			t.Errorf("columnForStatus(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
