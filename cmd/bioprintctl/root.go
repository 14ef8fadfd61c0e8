package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:   "bioprintctl",
	Short: "Bioprinting fleet control plane",
	Long:  "bioprintctl runs the closed-loop telemetry decision pipeline for a bioprinting fleet, with a tamper-evident audit trail and per-printer digital twins.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/control-plane.yaml", "Path to control-plane configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "schemas/control-plane.cue", "Path to CUE schema file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(verifyAuditCmd)
	rootCmd.AddCommand(dashboardCmd)
}
