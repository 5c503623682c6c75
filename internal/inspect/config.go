package inspect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentward/internal/model"
)

// Config holds operator-defined inspection rules layered on top of the
// built-in tables.
type Config struct {
	ThreatPatterns []ThreatPatternDef `yaml:"threat_patterns"`
	SecretPatterns []SecretPatternDef `yaml:"secret_patterns"`
}

// ThreatPatternDef defines a custom threat pattern from config.
type ThreatPatternDef struct {
	Regex       string `yaml:"regex"`
	Type        string `yaml:"type"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
}

// SecretPatternDef defines a custom secret pattern from config.
type SecretPatternDef struct {
	Regex string `yaml:"regex"`
	Kind  string `yaml:"kind"`
}

// LoadConfig loads inspection config from the given path. An empty
// path or a missing file yields a nil config (built-ins only), not an
// error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("inspect: parse config: %w", err)
	}
	return &cfg, nil
}

// compile validates and compiles the extra patterns.
func compile(cfg *Config) ([]threatRule, []secretRule, error) {
	if cfg == nil {
		return nil, nil, nil
	}

	var threats []threatRule
	for i, def := range cfg.ThreatPatterns {
		if def.Regex == "" {
			return nil, nil, fmt.Errorf("inspect: threat_patterns[%d]: regex is required", i)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, nil, fmt.Errorf("inspect: threat_patterns[%d]: invalid regex: %w", i, err)
		}
		typ := model.ThreatType(def.Type)
		if typ == "" {
			typ = model.ThreatPromptInjection
		}
		sev := model.Severity(def.Severity)
		if sev == "" {
			sev = model.SevMedium
		}
		desc := def.Description
		if desc == "" {
			desc = "Operator-defined threat pattern"
		}
		threats = append(threats, threatRule{re: re, typ: typ, severity: sev, description: desc})
	}

	var secrets []secretRule
	for i, def := range cfg.SecretPatterns {
		if def.Regex == "" {
			return nil, nil, fmt.Errorf("inspect: secret_patterns[%d]: regex is required", i)
		}
		if def.Kind == "" {
			return nil, nil, fmt.Errorf("inspect: secret_patterns[%d]: kind is required", i)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, nil, fmt.Errorf("inspect: secret_patterns[%d] %q: invalid regex: %w", i, def.Kind, err)
		}
		secrets = append(secrets, secretRule{
			re:          re,
			kind:        def.Kind,
			placeholder: fmt.Sprintf("[REDACTED:%s]", def.Kind),
		})
	}

	return threats, secrets, nil
}
