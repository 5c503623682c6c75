package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/inspect"
)

// Config holds MCP server configuration. APIKey is the credential the
// stdio front-end presents on every proxied call; the scan tool needs
// no credential.
type Config struct {
	APIKey string
}

// Server exposes the request firewall over MCP stdio so agent runtimes
// can route tool calls through it without speaking HTTP.
type Server struct {
	mcpServer *mcpsdk.Server
	gw        *gateway.Gateway
	scanner   *inspect.Engine
	apiKey    string
	log       *zap.Logger
}

// New creates an MCP server wrapping the gateway pipeline.
func New(cfg Config, gw *gateway.Gateway, scanner *inspect.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		gw:      gw,
		scanner: scanner,
		apiKey:  cfg.APIKey,
		log:     log,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "agentward",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the firewall tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentward_proxy",
		Description: "Route a tool call through the request firewall. Denied calls return an error with the verdict code and reason.",
	}, s.handleProxy)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "agentward_scan",
		Description: "Scan text for threats and secrets without proxying it (dry-run, no counters, no audit record).",
	}, s.handleScan)
}
