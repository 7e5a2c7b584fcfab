package main

import (
	"fmt"
	"strings"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/service"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <subject>",
	Short: "Show the tag weakness tree for a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		subject := args[0]
		report, err := a.Stats.SubjectReport(subject, service.OutcomesFromPayload(a.Store.Snapshot(), subject))
		if err != nil {
			return fmt.Errorf("%s: %w (known subjects: %s)", subject, err, strings.Join(a.Stats.Subjects(), ", "))
		}

		out := cmd.OutOrStdout()
		for _, node := range report.Flat {
			printNode(cmd, node)
		}
		if len(report.Weakest) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Weakest")
			for _, node := range report.Weakest {
				fmt.Fprintf(out, "  %-24s %.0f%% (%s)\n", node.Label, node.Computed.WeaknessScore*100, node.Computed.Priority)
			}
		}
		return nil
	},
}

func printNode(cmd *cobra.Command, node domain.EnhancedTagNode) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s%-*s %3d questions  %5.1f%%  %s\n",
		strings.Repeat("  ", node.Depth),
		24-2*node.Depth, node.Label,
		node.Stats.Total,
		node.Computed.WeaknessScore*100,
		node.Computed.Priority,
	)
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
