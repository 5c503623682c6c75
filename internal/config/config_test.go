package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults, got %v", err)
	}
	if cfg.Server.Port != 8420 {
		t.Errorf("expected default port 8420, got %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory store default, got %s", cfg.Store.Backend)
	}
	if cfg.Payment.FailOpen {
		t.Error("fail_open must default to false")
	}
}

func TestPartialFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
payment:
  wallet: WALLETabc
  fail_open: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Payment.Wallet != "WALLETabc" || !cfg.Payment.FailOpen {
		t.Errorf("payment section not applied: %+v", cfg.Payment)
	}
	// Untouched sections keep defaults.
	if cfg.Gateway.ForwardTimeoutSecs != 10 {
		t.Errorf("expected default forward timeout, got %d", cfg.Gateway.ForwardTimeoutSecs)
	}
	if cfg.Registration.LaunchPriceUSDC != 0.001 {
		t.Errorf("expected default launch price, got %f", cfg.Registration.LaunchPriceUSDC)
	}
}

func TestInvalidYAMLRejected(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad port", "server:\n  port: -1\n", "invalid port"},
		{"unknown store", "store:\n  backend: dynamo\n", "unknown store backend"},
		{"sqlite without path", "store:\n  backend: sqlite\n", "requires sqlite_path"},
		{"remote without url", "store:\n  backend: remote\n", "requires remote_url"},
		{"redis without addr", "ratelimit:\n  backend: redis\n", "requires redis_addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadWithHashTracksFileBytes(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	_, h1, err := LoadWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("expected sha256 hash, got %q", h1)
	}

	os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0644)
	_, h2, err := LoadWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("expected hash to change with file contents")
	}
}

func TestRegistrationPricing(t *testing.T) {
	reg := Registration{LaunchPriceUSDC: 0.001, StandardPriceUSDC: 0.002, Cutover: "2026-03-01"}

	before := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	if got := reg.PriceAt(before); got != 0.001 {
		t.Errorf("before cutover: expected launch price, got %f", got)
	}
	if got := reg.PriceAt(after); got != 0.002 {
		t.Errorf("after cutover: expected standard price, got %f", got)
	}

	// Unparseable cutover keeps the launch price in effect.
	reg.Cutover = "not-a-date"
	if got := reg.PriceAt(after); got != 0.001 {
		t.Errorf("invalid cutover: expected launch price, got %f", got)
	}
}
