package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/bounty"
	"github.com/ppiankov/agentward/internal/config"
)

var huntLimit int

func init() {
	rootCmd.AddCommand(huntCmd)
	huntCmd.Flags().IntVar(&huntLimit, "limit", 50, "Maximum issues to fetch per run")
}

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Discover bounty-labeled GitHub issues",
	Long:  "Searches GitHub for open issues carrying the configured bounty labels,\nextracts the advertised amounts, and records new ones in the store.",
	RunE:  runHunt,
}

func runHunt(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, closeStore, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	client := bounty.NewClient(cfg.Bounty.GitHubToken)
	hunter := bounty.NewHunter(client, st, cfg.Bounty.Labels, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := hunter.Hunt(ctx, huntLimit)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	return nil
}
