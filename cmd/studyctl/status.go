package main

import (
	"fmt"
	"time"

	"examtrack-sync/internal/domain"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local progress counts and sync settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.Store.Snapshot()
		settings := a.Store.Settings()
		out := cmd.OutOrStdout()

		counts := make(map[domain.ProgressStatus]int)
		for _, status := range snap.Progress {
			counts[status]++
		}

		fmt.Fprintln(out, "Progress")
		fmt.Fprintln(out, "--------")
		fmt.Fprintf(out, "Mastered:   %d\n", counts[domain.StatusMastered])
		fmt.Fprintf(out, "Confused:   %d\n", counts[domain.StatusConfused])
		fmt.Fprintf(out, "Failed:     %d\n", counts[domain.StatusFailed])
		fmt.Fprintf(out, "Notes:      %d\n", len(snap.Notes))
		fmt.Fprintf(out, "Starred:    %d\n", len(snap.Stars))
		fmt.Fprintf(out, "Custom:     %d questions\n", len(snap.CustomQuestions))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "Sync")
		fmt.Fprintln(out, "----")
		if !settings.Configured() {
			fmt.Fprintln(out, "Not configured")
			return nil
		}
		fmt.Fprintf(out, "Backend:    %s\n", a.Config.Sync.Backend)
		fmt.Fprintf(out, "Blob:       %s\n", orDash(settings.BlobID))
		if settings.LastSyncTime > 0 {
			fmt.Fprintf(out, "Last sync:  %s\n", time.UnixMilli(settings.LastSyncTime).Format(time.RFC1123))
		} else {
			fmt.Fprintln(out, "Last sync:  never")
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
