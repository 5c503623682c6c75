package model

import "time"

// ThreatType identifies the category of a detected threat.
type ThreatType string

const (
	ThreatPromptInjection ThreatType = "prompt_injection"
	ThreatJailbreak       ThreatType = "jailbreak"
	ThreatDataExfil       ThreatType = "data_exfiltration"
	ThreatCommandExec     ThreatType = "command_execution"
	ThreatSecretLeak      ThreatType = "secret_leak"
)

// Severity ranks how dangerous a detected threat is.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// Threat is one detected occurrence in a scanned payload.
type Threat struct {
	Type        ThreatType `json:"type"`
	Pattern     string     `json:"pattern"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
}

// ScanResult is the outcome of a threat scan. Threats are ordered by
// scan position; when the pipeline reports a single threat it reports
// the first one, not the most severe.
type ScanResult struct {
	Safe    bool     `json:"safe"`
	Threats []Threat `json:"threats,omitempty"`
}

// First returns the first detected threat in scan order, or nil when
// the payload is safe.
func (r ScanResult) First() *Threat {
	if r.Safe || len(r.Threats) == 0 {
		return nil
	}
	return &r.Threats[0]
}

// SecretMatch records one redacted secret occurrence. Only the kind
// and a display-safe placeholder are kept, never the raw value.
type SecretMatch struct {
	Kind        string `json:"kind"`
	Placeholder string `json:"placeholder"`
}

// SecretScanResult carries the redacted text and the matches found.
type SecretScanResult struct {
	Redacted     string        `json:"redacted"`
	SecretsFound []SecretMatch `json:"secrets_found"`
}

// ThreatSignature is a deduplicated record of an observed threat,
// shared across all agents as a feed.
type ThreatSignature struct {
	SignatureHash string     `json:"signature_hash"`
	ThreatType    ThreatType `json:"threat_type"`
	Pattern       string     `json:"pattern"`
	Description   string     `json:"description"`
	Severity      Severity   `json:"severity"`
	SourceAgentID string     `json:"source_agent_id"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
}
