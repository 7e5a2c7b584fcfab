package main

import (
	"fmt"
	"os"

	"examtrack-sync/internal/app"
	"examtrack-sync/internal/config"
	"examtrack-sync/internal/logger"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "studyctl",
	Short: "Inspect and sync local ExamTrack study progress",
	Long: `studyctl works on the same data directory as the sync daemon.
Stop the daemon first: the local database allows one process at a time.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log sync activity to stderr")
}

// openApp loads configuration and local state for a single command.
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logs := logger.New(logger.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Quiet:      !verbose,
	})
	return app.New(cfg, logs)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
