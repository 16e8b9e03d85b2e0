package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI codes used for CLI highlights. Empty when stdout is not a
// terminal (pipes, CI logs, NO_COLOR).
var (
	colorReset  = ""
	colorGreen  = ""
	colorYellow = ""
	colorRed    = ""
	colorDim    = ""
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		return
	}
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return
	}
	colorReset = "\x1b[0m"
	colorGreen = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorRed = "\x1b[31m"
	colorDim = "\x1b[2m"
}

// statusColor maps an agent or cell status word to a highlight color.
func statusColor(status string) string {
	switch status {
	case "active", "open", "closed":
		return colorGreen
	case "idle", "in_progress":
		return colorYellow
	case "gone", "blocked":
		return colorRed
	default:
		return ""
	}
}

// paint wraps s in color when stdout is a terminal.
func paint(color, s string) string {
	if color == "" {
		return s
	}
	return fmt.Sprintf("%s%s%s", color, s, colorReset)
}
