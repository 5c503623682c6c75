// Package config loads the agentward YAML configuration: defaults
// first, file values overlaying only what they specify.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Server configures the HTTP listener.
type Server struct {
	Port int `yaml:"port"`
}

// Payment configures the x402 gate.
type Payment struct {
	Wallet         string `yaml:"wallet"`
	FacilitatorURL string `yaml:"facilitator_url"`

	// FailOpen accepts claimed payments when the facilitator is
	// unreachable. Demo posture only; the default is fail closed.
	FailOpen bool `yaml:"fail_open"`
}

// Store selects the record-store backend.
type Store struct {
	// Backend is one of memory, sqlite, remote.
	Backend          string `yaml:"backend"`
	SQLitePath       string `yaml:"sqlite_path"`
	RemoteURL        string `yaml:"remote_url"`
	RemoteServiceKey string `yaml:"remote_service_key"`
}

// RateLimit selects the window-counter backend.
type RateLimit struct {
	// Backend is one of memory, redis.
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
}

// Gateway holds pipeline policy knobs.
type Gateway struct {
	CountResponseThreats bool `yaml:"count_response_threats"`
	ForwardTimeoutSecs   int  `yaml:"forward_timeout_seconds"`
}

// Inspect points at the operator pattern file.
type Inspect struct {
	PatternsPath string `yaml:"patterns_path"`
}

// Audit configures the local hash-chained log. Empty path disables it;
// the record store's event table is always written.
type Audit struct {
	LogPath string `yaml:"log_path"`
}

// Registration configures new-agent pricing. Agents registered before
// the cutover date lock the launch price, after it the standard price.
type Registration struct {
	LaunchPriceUSDC   float64 `yaml:"launch_price_usdc"`
	StandardPriceUSDC float64 `yaml:"standard_price_usdc"`
	Cutover           string  `yaml:"cutover"` // YYYY-MM-DD
}

// Bounty configures the GitHub issue discovery client.
type Bounty struct {
	GitHubToken string   `yaml:"github_token"`
	Labels      []string `yaml:"labels"`
}

// Config holds all configurable agentward parameters.
type Config struct {
	Server       Server       `yaml:"server"`
	Payment      Payment      `yaml:"payment"`
	Store        Store        `yaml:"store"`
	RateLimit    RateLimit    `yaml:"ratelimit"`
	Gateway      Gateway      `yaml:"gateway"`
	Inspect      Inspect      `yaml:"inspect"`
	Audit        Audit        `yaml:"audit"`
	Registration Registration `yaml:"registration"`
	Bounty       Bounty       `yaml:"bounty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{Port: 8420},
		Payment: Payment{
			FacilitatorURL: "https://facilitator.x402.org",
		},
		Store:     Store{Backend: "memory"},
		RateLimit: RateLimit{Backend: "memory"},
		Gateway:   Gateway{ForwardTimeoutSecs: 10},
		Registration: Registration{
			LaunchPriceUSDC:   0.001,
			StandardPriceUSDC: 0.002,
			Cutover:           "2026-03-01",
		},
		Bounty: Bounty{Labels: []string{"bounty", "reward"}},
	}
}

// ForwardTimeout returns the outbound-leg timeout as a duration.
func (g Gateway) ForwardTimeout() time.Duration {
	return time.Duration(g.ForwardTimeoutSecs) * time.Second
}

// CutoverDate parses the registration cutover. Invalid or empty dates
// fall back to far-future, keeping the launch price in effect.
func (r Registration) CutoverDate() time.Time {
	t, err := time.Parse("2006-01-02", r.Cutover)
	if err != nil {
		return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// PriceAt returns the locked price-per-request for an agent registered
// at the given time.
func (r Registration) PriceAt(at time.Time) float64 {
	if at.Before(r.CutoverDate()) {
		return r.LaunchPriceUSDC
	}
	return r.StandardPriceUSDC
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: sqlite backend requires sqlite_path")
		}
	case "remote":
		if c.Store.RemoteURL == "" {
			return fmt.Errorf("config: remote backend requires remote_url")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("config: redis backend requires redis_addr")
		}
	default:
		return fmt.Errorf("config: unknown ratelimit backend %q", c.RateLimit.Backend)
	}
	if c.Gateway.ForwardTimeoutSecs <= 0 {
		return fmt.Errorf("config: forward_timeout_seconds must be positive")
	}
	return nil
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentward.yaml"
	}
	return filepath.Join(home, ".agentward", "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. A missing file returns defaults; invalid YAML or a
// config that fails validation returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw
// file bytes for provenance. Defaults (no file) hash empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return Default(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, hash, nil
}
