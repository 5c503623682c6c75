package gateway

import (
	"github.com/ppiankov/agentward/internal/model"
	"github.com/ppiankov/agentward/internal/payment"
	"github.com/ppiankov/agentward/internal/ratelimit"
)

// Decision is the single terminal outcome of running a call through
// the gate chain. Exactly one Decision is produced per call.
type Decision struct {
	Code model.Code `json:"code"`

	// Agent is the resolved caller account, nil when the credential
	// did not resolve. Always redacted before leaving the gateway.
	Agent *model.Agent `json:"agent,omitempty"`

	// Request is the processed call after redaction. Only set on allow.
	Request *model.ProxyRequest `json:"request,omitempty"`

	// Threat is the first detected threat in scan order, set for
	// threat_blocked and response_threat.
	Threat *model.Threat `json:"threat,omitempty"`

	// RateLimit carries the window state, set for rate_limited.
	RateLimit *ratelimit.Result `json:"rate_limit,omitempty"`

	// Payment carries retry instructions, set for payment_required.
	Payment *payment.Instructions `json:"payment,omitempty"`

	// Forward is the outbound call result when a target was supplied
	// and the forward leg ran.
	Forward *ForwardResult `json:"forward,omitempty"`

	// Redactions lists secrets replaced in the payload before forwarding.
	Redactions []model.SecretMatch `json:"redactions,omitempty"`

	LatencyMS int64  `json:"latency_ms"`
	Err       string `json:"error,omitempty"`
}

// Allowed reports whether the call passed every gate.
func (d Decision) Allowed() bool {
	return d.Code == model.CodeAllow
}

// denyErr builds a terminal denial with the given code and caller-safe
// message.
func denyErr(code model.Code, msg string) *Decision {
	return &Decision{Code: code, Err: msg}
}
