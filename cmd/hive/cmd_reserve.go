package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hive/pkg/protocol"
)

// newReserveCmd creates the "hive reserve" subcommand.
func newReserveCmd() *cobra.Command {
	var agent string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "reserve <path>",
		Short: "Claim exclusive editing rights on a file path",
		Long:  "Reserve a file path for an agent. Fails immediately when another\nagent holds an active claim, naming the holder and its expiry.\nReserving a path you already hold renews the claim.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("reserve: %w", err)
			}
			defer app.Close()

			r, err := app.reservations.Reserve(cmd.Context(), args[0], agent, ttl)
			var conflict *protocol.ConflictError
			if errors.As(err, &conflict) {
				return fmt.Errorf("reserve: %s held by %s until %s",
					conflict.FilePath, conflict.Holder, conflict.ExpiresAt.Format("15:04:05"))
			}
			if err != nil {
				return fmt.Errorf("reserve: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reserved %s for %s until %s\n",
				r.FilePath, r.Holder, r.ExpiresAt.Format("15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "claiming agent name (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "claim duration (default from config)")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

// newReleaseCmd creates the "hive release" subcommand.
func newReleaseCmd() *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "release <path>",
		Short: "Release a file reservation",
		Long:  "Release an agent's claim on a path. Releasing a path with no active\nclaim succeeds without effect; releasing another agent's claim fails.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("release: %w", err)
			}
			defer app.Close()

			if err := app.reservations.Release(cmd.Context(), args[0], agent); err != nil {
				return fmt.Errorf("release: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "releasing agent name (required)")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

// newReservationsCmd creates the "hive reservations" subcommand.
func newReservationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reservations",
		Short: "List active file reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("reservations: %w", err)
			}
			defer app.Close()

			active, err := app.reservations.Active(cmd.Context())
			if err != nil {
				return fmt.Errorf("reservations: %w", err)
			}
			if len(active) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active reservations.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tHOLDER\tEXPIRES")
			for _, r := range active {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.FilePath, r.Holder, r.ExpiresAt.Format("15:04:05"))
			}
			return w.Flush()
		},
	}
}
