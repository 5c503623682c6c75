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
	"github.com/ppiankov/agentward/internal/server"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the firewall HTTP server",
	Long:  "Runs the full proxy pipeline behind an HTTP server: /proxy for tool\ncalls, /api for registration and read endpoints, /metrics for Prometheus.\nThe inspection pattern file hot-reloads on change.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := config.LoadWithHash(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

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

	srv := server.New(cfg, gw, st, scanner, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Inspect.PatternsPath != "" {
		reloader, err := server.NewReloader(srv, []string{cfg.Inspect.PatternsPath})
		if err != nil {
			log.Warn("hot-reload disabled", zap.Error(err))
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	log.Info("agentward listening",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
		zap.String("config_hash", cfgHash))

	return srv.Start(ctx)
}
