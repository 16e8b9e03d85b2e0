package main

import (
	"fmt"

	"hive/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root hive command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hive",
		Short:         "Hive agent coordination and memory substrate",
		Long:          "hive coordinates a swarm of agents working on one project:\nan append-only event log, file reservations, inter-agent messaging,\na task cell forest, and a cross-session memory store.",
		Version:       fmt.Sprintf("hive %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().String("project", "", "explicit project key (default: derived from the working directory)")

	cmd.AddCommand(
		newInitCmd(),
		newRegisterCmd(),
		newHeartbeatCmd(),
		newAgentsCmd(),
		newSendCmd(),
		newInboxCmd(),
		newAckCmd(),
		newReserveCmd(),
		newReleaseCmd(),
		newReservationsCmd(),
		newCellCmd(),
		newRememberCmd(),
		newRecallCmd(),
		newMemoriesCmd(),
		newForgetCmd(),
		newValidateCmd(),
		newDecayCmd(),
		newExportCmd(),
		newImportCmd(),
		newLogCmd(),
		newRebuildCmd(),
		newStatusCmd(),
	)

	return cmd
}
