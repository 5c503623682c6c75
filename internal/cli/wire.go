package cli

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/audit"
	"github.com/ppiankov/agentward/internal/config"
	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/inspect"
	"github.com/ppiankov/agentward/internal/payment"
	"github.com/ppiankov/agentward/internal/ratelimit"
	"github.com/ppiankov/agentward/internal/store"
)

// buildStore selects the record-store backend from configuration.
func buildStore(cfg *config.Config) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "remote":
		return store.NewRemote(cfg.Store.RemoteURL, cfg.Store.RemoteServiceKey), noopClose, nil
	default:
		return store.NewMemory(), noopClose, nil
	}
}

func noopClose() error { return nil }

// buildLimiter selects the rate-limit window backend.
func buildLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RateLimit.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		return ratelimit.New(ratelimit.NewRedisStore(rdb, "agentward"))
	}
	return ratelimit.New(ratelimit.NewMemoryStore())
}

// buildGateway assembles the full gate chain from configuration.
func buildGateway(cfg *config.Config, st store.Store, scanner *inspect.Engine, log *zap.Logger) (*gateway.Gateway, func() error, error) {
	var verifierOpts []payment.VerifierOption
	if cfg.Payment.FailOpen {
		verifierOpts = append(verifierOpts, payment.WithFailOpen())
	}
	verifier := payment.NewVerifier(cfg.Payment.FacilitatorURL, log, verifierOpts...)

	var auditLog *audit.Log
	closeLog := noopClose
	if cfg.Audit.LogPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.Audit.LogPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		closeLog = auditLog.Close
	}

	gw := gateway.New(gateway.Config{
		Wallet:               cfg.Payment.Wallet,
		FacilitatorURL:       cfg.Payment.FacilitatorURL,
		CountResponseThreats: cfg.Gateway.CountResponseThreats,
		ForwardTimeout:       cfg.Gateway.ForwardTimeout(),
	}, st, buildLimiter(cfg), verifier, scanner, auditLog, log)

	return gw, closeLog, nil
}

// buildScanner loads inspection patterns, falling back to built-ins
// when no pattern file is configured.
func buildScanner(cfg *config.Config) (*inspect.Engine, error) {
	patterns, err := inspect.LoadConfig(cfg.Inspect.PatternsPath)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return inspect.NewEngine(patterns)
}
