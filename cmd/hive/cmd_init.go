package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hive/pkg/config"
	"hive/pkg/store"
)

// newInitCmd creates the "hive init" subcommand.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the project store",
		Long:  "Resolve the project key, create the hive home directory if needed,\nand open and migrate the project database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openAppFor(cmd)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer app.Close()

			home, err := store.ResolveHome()
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized project %s\n", app.projectKey)
			fmt.Fprintf(cmd.OutOrStdout(), "  database: %s\n", app.store.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "  config:   %s\n", config.Path(home))
			return nil
		},
	}
}
