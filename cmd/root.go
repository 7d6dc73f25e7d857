package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "live-tracking-service",
	Short: "Live tracking service: session lifecycle, WebSocket location broadcast",
	Long:  `HTTP + WebSocket API for live GPS tracking. Commands: api, migrate, migrate-create.`,
	RunE:  runAPI, // default: run API (same as "live-tracking-service api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateCreateCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
