package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Categorise device groups in the configuration file and print counts",
	Long: `report is an offline reader of the configuration file (SPEC_FULL.md §4.8,
ported from original_source/device_group_report.py): it shares only the
config-file format with the live dispatcher and touches neither the farm
nor the state cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		report.Print(cmd.OutOrStdout(), report.Build(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
