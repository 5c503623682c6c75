package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentward",
	Short: "Request firewall for autonomous agents",
	Long:  "Sits between agents and their tools: authenticates callers, rate-limits,\ncollects x402 payment past the free tier, scans payloads for threats,\nredacts leaked secrets, and keeps a tamper-evident audit trail.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.agentward/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
