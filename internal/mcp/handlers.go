package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/model"
)

// ProxyInput defines parameters for the agentward_proxy tool.
type ProxyInput struct {
	Tool      string            `json:"tool,omitempty" jsonschema:"tool being invoked"`
	Action    string            `json:"action,omitempty" jsonschema:"operation within the tool"`
	Data      map[string]any    `json:"data,omitempty" jsonschema:"tool-call payload"`
	TargetURL string            `json:"target_url,omitempty" jsonschema:"upstream URL to forward the call to"`
	Method    string            `json:"method,omitempty" jsonschema:"HTTP method for forwarding"`
	Headers   map[string]string `json:"headers,omitempty" jsonschema:"headers for the forwarded request"`
	Payment   string            `json:"payment,omitempty" jsonschema:"x402 payment header value when the free tier is exhausted"`
}

// ProxyOutput carries the verdict for a proxied call.
type ProxyOutput struct {
	Allowed     bool                   `json:"allowed"`
	Code        string                 `json:"code"`
	Reason      string                 `json:"reason,omitempty"`
	ThreatType  string                 `json:"threat_type,omitempty"`
	Redactions  []model.SecretMatch    `json:"redactions,omitempty"`
	Forward     *gateway.ForwardResult `json:"forward,omitempty"`
	PaymentHint string                 `json:"payment_hint,omitempty"`
	LatencyMS   int64                  `json:"latency_ms"`
}

// ScanInput defines parameters for the agentward_scan tool.
type ScanInput struct {
	Text string `json:"text" jsonschema:"text to scan for threats and secrets"`
}

// ScanOutput reports the dry-run inspection result.
type ScanOutput struct {
	Safe     bool                `json:"safe"`
	Threats  []model.Threat      `json:"threats,omitempty"`
	Redacted string              `json:"redacted,omitempty"`
	Secrets  []model.SecretMatch `json:"secrets,omitempty"`
}

func (s *Server) handleProxy(ctx context.Context, req *mcpsdk.CallToolRequest, input ProxyInput) (*mcpsdk.CallToolResult, ProxyOutput, error) {
	body, err := json.Marshal(model.ProxyRequest{
		Tool:      input.Tool,
		Action:    input.Action,
		Data:      input.Data,
		TargetURL: input.TargetURL,
		Method:    input.Method,
		Headers:   input.Headers,
	})
	if err != nil {
		return nil, ProxyOutput{}, fmt.Errorf("encode request: %w", err)
	}

	d := s.gw.Handle(ctx, gateway.Call{
		APIKey:        s.apiKey,
		PaymentHeader: input.Payment,
		Body:          body,
	})

	out := ProxyOutput{
		Allowed:    d.Allowed(),
		Code:       string(d.Code),
		Reason:     d.Err,
		Redactions: d.Redactions,
		Forward:    d.Forward,
		LatencyMS:  d.LatencyMS,
	}
	if d.Threat != nil {
		out.ThreatType = string(d.Threat.Type)
	}
	if d.Payment != nil {
		out.PaymentHint = fmt.Sprintf("send %g %s to %s and retry with the payment field set",
			d.Payment.Amount, d.Payment.Currency, d.Payment.Recipient)
	}

	if !d.Allowed() {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleScan(ctx context.Context, req *mcpsdk.CallToolRequest, input ScanInput) (*mcpsdk.CallToolResult, ScanOutput, error) {
	threats := s.scanner.ScanForThreats(input.Text)
	secrets := s.scanner.ScanAndRedactSecrets(input.Text)

	out := ScanOutput{
		Safe:    threats.Safe && len(secrets.SecretsFound) == 0,
		Threats: threats.Threats,
		Secrets: secrets.SecretsFound,
	}
	if len(secrets.SecretsFound) > 0 {
		out.Redacted = secrets.Redacted
	}
	return nil, out, nil
}
