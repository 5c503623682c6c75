// Package server exposes the firewall over HTTP: the proxy endpoint,
// agent registration, the read-side dashboard API, health, and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/config"
	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/inspect"
	"github.com/ppiankov/agentward/internal/store"
)

// Server is the agentward HTTP front-end.
type Server struct {
	cfg     *config.Config
	engine  *gin.Engine
	gw      *gateway.Gateway
	st      store.Store
	scanner *inspect.Engine
	log     *zap.Logger
	srv     *http.Server
}

// New assembles the HTTP server and its routes.
func New(cfg *config.Config, gw *gateway.Gateway, st store.Store, scanner *inspect.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		gw:      gw,
		st:      st,
		scanner: scanner,
		log:     log,
	}

	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/proxy", s.proxy)

	api := engine.Group("/api")
	api.POST("/agents", s.registerAgent)
	api.GET("/agent", s.getAgent)
	api.GET("/events", s.getEvents)
	api.GET("/payment", s.getPayment)
	api.GET("/stats", s.getStats)
	api.GET("/threats", s.getThreats)

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", zap.Int("port", s.cfg.Server.Port))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// ReloadPatterns re-reads the inspector pattern file and swaps the
// rule set. A failed reload keeps the current rules.
func (s *Server) ReloadPatterns() error {
	cfg, err := inspect.LoadConfig(s.cfg.Inspect.PatternsPath)
	if err != nil {
		return fmt.Errorf("server: load patterns: %w", err)
	}
	if err := s.scanner.Reload(cfg); err != nil {
		return fmt.Errorf("server: reload patterns: %w", err)
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}

// apiKey pulls the caller credential from X-API-Key or a bearer token.
func apiKey(c *gin.Context) string {
	if k := c.GetHeader("X-API-Key"); k != "" {
		return k
	}
	auth := c.GetHeader("Authorization")
	if v, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return v
	}
	return ""
}
