package main

import (
	"fmt"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/service"

	"github.com/spf13/cobra"
)

var (
	syncBackground bool
	syncStrategy   string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local progress with the remote blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Store.Settings().Configured() {
			return service.ErrNoCredential
		}

		ctx := cmd.Context()
		if syncStrategy != "" {
			err = a.Conflicts.Resolve(ctx, domain.ResolutionStrategy(syncStrategy))
		} else {
			err = a.Sync.SyncData(ctx, service.SyncOptions{Foreground: !syncBackground})
		}
		if err != nil {
			return err
		}

		status := a.Sync.Status()
		fmt.Fprintf(cmd.OutOrStdout(), "Synced to blob %s\n", a.Store.Settings().BlobID)
		if status.Conflict != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d keys changed on both sides (%d progress, %d notes)\n",
				status.Conflict.Size(), len(status.Conflict.DivergentProgress), len(status.Conflict.DivergentNotes))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncBackground, "background", false, "upload the merge without applying it locally")
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", "", "resolve with merge, local or remote instead of a plain sync")
	rootCmd.AddCommand(syncCmd)
}
