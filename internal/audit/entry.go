package audit

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp  string  `json:"ts"`
	AgentID    string  `json:"agent_id"`
	EventType  string  `json:"event_type"`
	Tool       string  `json:"tool"`
	Action     string  `json:"action"`
	Decision   string  `json:"decision"`
	Code       string  `json:"code"`
	ThreatType string  `json:"threat_type,omitempty"`
	AmountUSDC float64 `json:"amount_usdc,omitempty"`
	LatencyMS  int64   `json:"latency_ms"`
	PrevHash   string  `json:"prev_hash"`
}
