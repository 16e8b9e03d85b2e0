// Package main implements the hive-dash interactive dashboard: a
// read-only live view of one project's agents, task cells, and file
// reservations.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hive/pkg/store"
)

func main() {
	home, err := store.ResolveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hive-dash: %v\n", err)
		os.Exit(1)
	}
	key, err := store.ProjectKey(os.Getenv("HIVE_PROJECT"), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hive-dash: %v\n", err)
		os.Exit(1)
	}
	dbPath := store.DBPath(home, key)

	p := tea.NewProgram(newModel(key, dbPath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "hive-dash: %v\n", err)
		os.Exit(1)
	}
}
