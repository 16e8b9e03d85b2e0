package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// newRegisterCmd creates the "hive register" subcommand.
func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <name>",
		Short: "Register an agent",
		Long:  "Register an agent under a unique name. Re-registering an existing\nname refreshes its liveness instead of failing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			defer app.Close()

			if err := app.coordinator.Register(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", args[0])
			return nil
		},
	}
}

// newHeartbeatCmd creates the "hive heartbeat" subcommand.
func newHeartbeatCmd() *cobra.Command {
	var idle bool
	cmd := &cobra.Command{
		Use:   "heartbeat <name>",
		Short: "Advance an agent's last-seen time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
			defer app.Close()

			status := "active"
			if idle {
				status = "idle"
			}
			if err := app.coordinator.Heartbeat(cmd.Context(), args[0], status); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat recorded for %s (%s)\n", args[0], status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&idle, "idle", false, "park the agent as idle instead of active")
	return cmd
}

// newAgentsCmd creates the "hive agents" subcommand.
func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("agents: %w", err)
			}
			defer app.Close()

			agents, err := app.coordinator.Agents(cmd.Context())
			if err != nil {
				return fmt.Errorf("agents: %w", err)
			}
			if len(agents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No agents registered.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tLAST SEEN")
			for _, a := range agents {
				status := paint(statusColor(string(a.Status)), string(a.Status))
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, status, humanSince(a.LastSeenAt))
			}
			return w.Flush()
		},
	}
}

// humanSince renders a timestamp as a relative age for table output.
func humanSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
