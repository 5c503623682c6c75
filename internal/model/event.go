package model

import "time"

// EventType categorizes one audit row.
type EventType string

const (
	EventToolCall      EventType = "tool_call"
	EventThreatBlocked EventType = "threat_blocked"
	EventKeyRedacted   EventType = "key_redacted"
	EventRateLimited   EventType = "rate_limited"
	EventPaymentDenied EventType = "payment_denied"
)

// EventDecision is the recorded outcome of a pipeline decision point.
type EventDecision string

const (
	DecisionAllow  EventDecision = "allow"
	DecisionBlock  EventDecision = "block"
	DecisionRedact EventDecision = "redact"
)

// Event is one append-only audit row. The core never updates or
// deletes events once written.
type Event struct {
	ID             string        `json:"id,omitempty"`
	AgentID        string        `json:"agent_id"`
	Type           EventType     `json:"event_type"`
	ToolName       string        `json:"tool_name"`
	RequestData    string        `json:"request_data,omitempty"`
	Decision       EventDecision `json:"decision"`
	ThreatDetected bool          `json:"threat_detected"`
	ThreatType     ThreatType    `json:"threat_type,omitempty"`
	LatencyMS      int64         `json:"latency_ms"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
}
