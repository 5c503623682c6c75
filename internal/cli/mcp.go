package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/config"
	awmcp "github.com/ppiankov/agentward/internal/mcp"
)

var mcpAPIKey string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAPIKey, "api-key", "", "API key presented on proxied calls (falls back to AGENTWARD_API_KEY)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs the firewall as an MCP (Model Context Protocol) server over stdio.\nExposes two tools: agentward_proxy and agentward_scan.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	apiKey := mcpAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("AGENTWARD_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set --api-key or AGENTWARD_API_KEY")
	}

	// stdio transport owns stdout; log to stderr only.
	log := zap.NewNop()

	st, closeStore, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	scanner, err := buildScanner(cfg)
	if err != nil {
		return err
	}

	gw, closeLog, err := buildGateway(cfg, st, scanner, log)
	if err != nil {
		return err
	}
	defer closeLog()

	srv := awmcp.New(awmcp.Config{APIKey: apiKey}, gw, scanner, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "agentward MCP server running on stdio")
	return srv.Run(ctx)
}
