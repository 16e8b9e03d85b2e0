package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hive/pkg/protocol"
)

// newCellCmd creates the "hive cell" command group.
func newCellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cell",
		Short: "Manage task cells",
		Long:  "Task cells are units of work, optionally nested one level under an\nepic. Cell references accept a full id or an unambiguous prefix.",
	}
	cmd.AddCommand(
		newCellCreateCmd(),
		newCellListCmd(),
		newCellShowCmd(),
		newCellStatusCmd(),
		newCellCloseCmd(),
		newCellPlanCmd(),
	)
	return cmd
}

func newCellCreateCmd() *cobra.Command {
	var description, parent string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task cell",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell create: %w", err)
			}
			defer app.Close()

			title := strings.Join(args, " ")
			cell, err := app.coordinator.CreateCell(cmd.Context(), title, description, parent)
			if err != nil {
				return fmt.Errorf("cell create: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", cell.ID, cell.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.Flags().StringVar(&parent, "parent", "", "epic id or prefix to nest under")
	return cmd
}

func newCellListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell list: %w", err)
			}
			defer app.Close()

			cells, err := app.coordinator.Cells(cmd.Context(), protocol.CellStatus(status))
			if err != nil {
				return fmt.Errorf("cell list: %w", err)
			}
			if len(cells) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cells.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPARENT\tTITLE")
			for _, c := range cells {
				parent := c.Parent
				if parent == "" {
					parent = "-"
				}
				st := paint(statusColor(string(c.Status)), string(c.Status))
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(c.ID), st, shortID(parent), c.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, in_progress, blocked, closed)")
	return cmd
}

func newCellShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show one cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell show: %w", err)
			}
			defer app.Close()

			cell, err := app.coordinator.Cell(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("cell show: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", cell.ID)
			fmt.Fprintf(out, "title:   %s\n", cell.Title)
			fmt.Fprintf(out, "status:  %s\n", paint(statusColor(string(cell.Status)), string(cell.Status)))
			if cell.Parent != "" {
				fmt.Fprintf(out, "parent:  %s\n", cell.Parent)
			}
			if cell.Description != "" {
				fmt.Fprintf(out, "description:\n  %s\n", cell.Description)
			}
			fmt.Fprintf(out, "created: %s\n", cell.CreatedAt.Format("2006-01-02 15:04"))
			if cell.ClosedAt != nil {
				fmt.Fprintf(out, "closed:  %s\n", cell.ClosedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newCellStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <ref> <status>",
		Short: "Transition a cell's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell status: %w", err)
			}
			defer app.Close()

			cell, err := app.coordinator.SetCellStatus(cmd.Context(), args[0], protocol.CellStatus(args[1]))
			if err != nil {
				return fmt.Errorf("cell status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", shortID(cell.ID), cell.Status)
			return nil
		},
	}
}

func newCellCloseCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "close <ref>",
		Short: "Close a cell",
		Long:  "Close a cell. An epic with open children refuses unless --force is\nset; force-closing leaves the children untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell close: %w", err)
			}
			defer app.Close()

			cell, err := app.coordinator.CloseCell(cmd.Context(), args[0], force)
			if err != nil {
				return fmt.Errorf("cell close: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s: %s\n", shortID(cell.ID), cell.Title)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "close even with open children")
	return cmd
}

func newCellPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file.yaml>",
		Short: "Import an epic with its cells from a YAML plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("cell plan: %w", err)
			}
			defer app.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cell plan: %w", err)
			}

			epicID, cellIDs, err := app.coordinator.ImportPlan(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("cell plan: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported epic %s with %d cells\n", shortID(epicID), len(cellIDs))
			return nil
		},
	}
}

// shortID abbreviates a UUID for table output; anything short enough
// passes through.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
