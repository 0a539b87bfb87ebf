package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	var configFile string
	rootCmd := &cobra.Command{
		Use:   "dutyctl",
		Short: "Operate the cleaning duty rotation",
		Long: `dutyctl runs the rotation jobs against the duty database directly:
schema migration, month generation, one-off assignment and reports.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (e.g. etc/config-dev.yaml)")

	app := &app{configFile: &configFile}
	rootCmd.AddCommand(app.migrateCmd())
	rootCmd.AddCommand(app.generateCmd())
	rootCmd.AddCommand(app.assignCmd())
	rootCmd.AddCommand(app.monthCmd())
	rootCmd.AddCommand(app.statsCmd())
	rootCmd.AddCommand(app.syncMembersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
