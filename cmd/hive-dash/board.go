package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hive/pkg/protocol"
)

// boardModel holds the kanban-style board state with cell columns.
type boardModel struct {
	columns []boardColumn
}

// boardColumn is a single column in the board view.
type boardColumn struct {
	title      string
	cells      []protocol.Cell
	totalCount int // may exceed len(cells) when the column is limited
}

// columnForStatus returns the board column title for a cell status.
func columnForStatus(status protocol.CellStatus) string {
	switch status {
	case protocol.CellInProgress:
		return "In Progress"
	case protocol.CellBlocked:
		return "Blocked"
	case protocol.CellClosed:
		return "Done"
	default:
		return "Open"
	}
}

// newBoardModel groups cells into 4 columns by status. The Done column
// is limited to the most recent 10.
func newBoardModel(cells []protocol.Cell) boardModel {
	buckets := map[string][]protocol.Cell{
		"Open":        {},
		"In Progress": {},
		"Blocked":     {},
		"Done":        {},
	}

	for _, c := range cells {
		col := columnForStatus(c.Status)
		buckets[col] = append(buckets[col], c)
	}

	titles := []string{"Open", "In Progress", "Blocked", "Done"}
	columns := make([]boardColumn, 0, len(titles))
	for _, t := range titles {
		cellsInCol := buckets[t]
		totalCount := len(cellsInCol)

		if t == "Done" && len(cellsInCol) > 10 {
			cellsInCol = cellsInCol[:10]
		}

		columns = append(columns, boardColumn{
			title:      t,
			cells:      cellsInCol,
			totalCount: totalCount,
		})
	}

	return boardModel{columns: columns}
}

// Render renders the board columns side-by-side using lipgloss.
func (bm boardModel) Render() string {
	theme := DefaultTheme()

	colWidth := 30

	cardStyle := lipgloss.NewStyle().
		Width(colWidth - 2).
		Padding(0, 1)

	idStyle := lipgloss.NewStyle().
		Foreground(theme.Muted)

	columnStyle := lipgloss.NewStyle().
		Width(colWidth).
		Padding(0, 1)

	rendered := make([]string, 0, len(bm.columns))
	for _, col := range bm.columns {
		headerColor := theme.Primary
		if col.title == "Done" {
			headerColor = theme.Success
		}

		headerStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(headerColor).
			Width(colWidth).
			Align(lipgloss.Center).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder())

		headerText := col.title
		if col.title == "Done" && col.totalCount > len(col.cells) {
			headerText = fmt.Sprintf("%s (%d/%d)", col.title, len(col.cells), col.totalCount)
		}

		header := headerStyle.Render(headerText)

		var cardsBuilder strings.Builder
		for _, c := range col.cells {
			label := c.Title
			if c.Parent != "" {
				label = "· " + label
			}
			card := cardStyle.Render(
				fmt.Sprintf("%s\n%s", label, idStyle.Render(shortID(c.ID))),
			)
			cardsBuilder.WriteString(card)
			cardsBuilder.WriteString("\n")
		}

		full := columnStyle.Render(header + "\n" + cardsBuilder.String())
		rendered = append(rendered, full)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// shortID abbreviates a UUID for card output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
