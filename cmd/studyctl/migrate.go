package main

import (
	"fmt"

	"examtrack-sync/internal/domain"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the local state to the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Opening the store already wrote any migrated state back.
		version, err := a.States.StoredVersion()
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No local state yet")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Local state is at version %d (current %d)\n", version, domain.SchemaVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
