package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hive/pkg/protocol"
)

// newLogCmd creates the "hive log" subcommand.
func newLogCmd() *cobra.Command {
	var since int64
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the project's event log",
		Long:  "Stream coordination events in sequence order. Useful for auditing\nwho did what and for debugging projection state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			defer app.Close()

			count := 0
			err = app.log.ReadFrom(cmd.Context(), since, func(e protocol.Event) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s  %-18s %s\n",
					e.Seq, e.Time().Format("2006-01-02 15:04:05"), e.Type, string(e.Payload))
				count++
				return nil
			})
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			if count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events.")
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&since, "since", 1, "first sequence number to show")
	return cmd
}

// newRebuildCmd creates the "hive rebuild" subcommand.
func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild all projections from the event log",
		Long:  "Clear every derived table and re-fold the full event history.\nRecovers from projection corruption; the log itself is untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			defer app.Close()

			if err := app.log.Rebuild(cmd.Context()); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}

			n, err := app.log.Length(cmd.Context())
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt projections from %d events\n", n)
			return nil
		},
	}
}
