package model

// ProxyRequest is the parsed body of a tool-invocation call. At least
// one of Tool or TargetURL must be set.
type ProxyRequest struct {
	Tool      string            `json:"tool,omitempty"`
	Action    string            `json:"action,omitempty"`
	Data      any               `json:"data,omitempty"`
	TargetURL string            `json:"target_url,omitempty"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// Target names what the call is aimed at: the declared tool, or the
// forwarding URL when no tool name was given.
func (r ProxyRequest) Target() string {
	if r.Tool != "" {
		return r.Tool
	}
	return r.TargetURL
}

// Code is the terminal verdict of the gate chain. Every request
// produces exactly one Code.
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

// HTTPStatus maps a verdict code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAllow:
		return 200
	case CodeUnauthorized:
		return 401
	case CodeQuarantined:
		return 403
	case CodeBadRequest, CodeThreatBlocked, CodeResponseThreat:
		return 400
	case CodeRateLimited:
		return 429
	case CodePaymentRequired, CodePaymentInvalid:
		return 402
	case CodeProxyError:
		return 502
	default:
		return 500
	}
}
