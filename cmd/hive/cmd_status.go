package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hive/pkg/protocol"
)

// newStatusCmd creates the "hive status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the project's coordination state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			defer app.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "project: %s\n", app.projectKey)

			length, err := app.log.Length(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Fprintf(out, "events:  %d\n", length)

			agents, err := app.coordinator.Agents(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			var active, idle, gone int
			for _, a := range agents {
				switch a.Status {
				case protocol.AgentActive:
					active++
				case protocol.AgentIdle:
					idle++
				case protocol.AgentGone:
					gone++
				}
			}
			fmt.Fprintf(out, "agents:  %d (%s active, %s idle, %s gone)\n", len(agents),
				paint(colorGreen, fmt.Sprint(active)),
				paint(colorYellow, fmt.Sprint(idle)),
				paint(colorRed, fmt.Sprint(gone)))

			reservations, err := app.reservations.Active(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Fprintf(out, "reservations: %d active\n", len(reservations))

			cells, err := app.coordinator.Cells(ctx, "")
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			var open, closed int
			for _, c := range cells {
				if c.Status == protocol.CellClosed {
					closed++
				} else {
					open++
				}
			}
			fmt.Fprintf(out, "cells:   %d open, %d closed\n", open, closed)

			memories, err := app.memories.Count(ctx, "")
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Fprintf(out, "memories: %d\n", memories)
			return nil
		},
	}
}
