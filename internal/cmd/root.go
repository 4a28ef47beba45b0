// Package cmd implements the taskctl maintenance CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Maintenance commands for the taskboard API and admin console",
	Long: `taskctl seeds the todo store with sample data and generates or serves
the mock dataset browsed by the admin console.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
