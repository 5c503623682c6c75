package agentward

import "fmt"

// Code is the terminal verdict returned for a proxied call.
type Code string

const (
	CodeAllow           Code = "allow"
	CodeUnauthorized    Code = "unauthorized"
	CodeQuarantined     Code = "quarantined"
	CodeBadRequest      Code = "bad_request"
	CodeRateLimited     Code = "rate_limited"
	CodePaymentRequired Code = "payment_required"
	CodePaymentInvalid  Code = "payment_invalid"
	CodeThreatBlocked   Code = "threat_blocked"
	CodeResponseThreat  Code = "response_threat"
	CodeProxyError      Code = "proxy_error"
	CodeInternalError   Code = "internal_error"
)

// ProxyRequest describes one tool call to route through the firewall.
// At least one of Tool or TargetURL must be set.
type ProxyRequest struct {
	Tool      string            `json:"tool,omitempty"`
	Action    string            `json:"action,omitempty"`
	Data      any               `json:"data,omitempty"`
	TargetURL string            `json:"target_url,omitempty"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// ForwardResult is the upstream response when the call was forwarded.
type ForwardResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// SecretMatch reports one secret the firewall redacted before
// forwarding. Only the kind and placeholder are exposed.
type SecretMatch struct {
	Kind        string `json:"kind"`
	Placeholder string `json:"placeholder"`
}

// ThreatInfo describes the detection that blocked a call.
type ThreatInfo struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// PaymentInstructions is the machine-readable block attached to a 402
// denial. It tells the caller how to construct the X-Payment header.
type PaymentInstructions struct {
	Scheme       string   `json:"scheme"`
	Amount       float64  `json:"amount"`
	Currency     string   `json:"currency"`
	Network      string   `json:"network"`
	Recipient    string   `json:"recipient"`
	Facilitator  string   `json:"facilitator"`
	HeaderFormat string   `json:"header_format"`
	Steps        []string `json:"instructions"`
}

// ProxyResponse is the decision envelope for an allowed call.
type ProxyResponse struct {
	OK         bool           `json:"ok"`
	Code       Code           `json:"code"`
	LatencyMS  int64          `json:"latency_ms"`
	Request    *ProxyRequest  `json:"request,omitempty"`
	Forward    *ForwardResult `json:"forward,omitempty"`
	Redactions []SecretMatch  `json:"redactions,omitempty"`
}

// BlockedError is returned when the firewall denies a call. Inspect
// Code to decide how to react: payment_required carries Payment,
// rate_limited carries ResetAt.
type BlockedError struct {
	Code    Code
	Reason  string
	Status  int
	Threat  *ThreatInfo
	Payment *PaymentInstructions
	Limit   int
	ResetAt string
}

func (e *BlockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("agentward blocked (%s): %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("agentward blocked (%s)", e.Code)
}
