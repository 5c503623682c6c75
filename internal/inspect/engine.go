package inspect

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ppiankov/agentward/internal/model"
)

// Engine is the default Scanner: a deterministic regex rule engine over
// the built-in tables plus any operator-defined patterns. Rule swaps
// (hot reload) are guarded by a lock; scanning itself holds the lock
// only to snapshot the rule slices.
type Engine struct {
	mu      sync.RWMutex
	threats []threatRule
	secrets []secretRule
}

// NewEngine creates an Engine with the built-in rule tables and any
// extra patterns from cfg (nil cfg means built-ins only).
func NewEngine(cfg *Config) (*Engine, error) {
	e := &Engine{}
	if err := e.Reload(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload swaps in a freshly compiled rule set. In-flight scans finish
// against the rules they started with.
func (e *Engine) Reload(cfg *Config) error {
	extraThreats, extraSecrets, err := compile(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.threats = append(append([]threatRule{}, builtinThreats...), extraThreats...)
	e.secrets = append(append([]secretRule{}, builtinSecrets...), extraSecrets...)
	return nil
}

// ScanForThreats implements Scanner.
func (e *Engine) ScanForThreats(text string) model.ScanResult {
	e.mu.RLock()
	rules := e.threats
	e.mu.RUnlock()
	return scanThreats(text, rules)
}

// ScanAndRedactSecrets implements Scanner.
func (e *Engine) ScanAndRedactSecrets(text string) model.SecretScanResult {
	e.mu.RLock()
	rules := e.secrets
	e.mu.RUnlock()
	return scanAndRedact(text, rules)
}

// SignatureHash implements Scanner. The hash covers the threat type and
// the normalized matched pattern so identical threat content observed
// by different agents dedups to one feed entry.
func (e *Engine) SignatureHash(t model.Threat) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(t.Pattern), " "))
	h := sha256.Sum256([]byte(string(t.Type) + "\x00" + normalized))
	return hex.EncodeToString(h[:])
}
