package model

import "time"

// AgentStatus is the lifecycle state of a caller account.
type AgentStatus string

const (
	StatusActive      AgentStatus = "active"
	StatusQuarantined AgentStatus = "quarantined"
)

// Tier is the subscription tier of a caller account.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Agent is a caller account keyed by its secret API key.
// Counters are mutated only after a terminal pipeline decision,
// never speculatively.
type Agent struct {
	ID              string      `json:"id"`
	APIKey          string      `json:"api_key,omitempty"`
	Name            string      `json:"agent_name"`
	Status          AgentStatus `json:"status"`
	Tier            Tier        `json:"subscription_tier"`
	RequestsToday   int64       `json:"requests_today"`
	RequestsTotal   int64       `json:"requests_total"`
	ThreatsBlocked  int64       `json:"threats_blocked"`
	PricePerRequest float64     `json:"price_per_request"`
	CreditsUSDC     float64     `json:"credits_usdc"`
	PriceLockedAt   time.Time   `json:"price_locked_at"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
}

// Quarantined returns true if the agent must be rejected before any
// other gate runs.
func (a *Agent) Quarantined() bool {
	return a.Status == StatusQuarantined
}

// Redacted returns a copy of the agent safe to echo back to callers:
// the API key is never exposed in responses.
func (a Agent) Redacted() Agent {
	a.APIKey = ""
	return a
}
