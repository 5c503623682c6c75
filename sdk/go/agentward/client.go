package agentward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// paymentHeaderName is the request header carrying the x402 envelope.
const paymentHeaderName = "X-Payment"

// Client submits tool calls to an agentward server.
// Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PaymentHeader builds the x402 header value for a retry after a
// payment_required denial.
func PaymentHeader(amount float64, txSignature, recipient string) string {
	return fmt.Sprintf("x402 usdc/solana amount=%g tx=%s recipient=%s", amount, txSignature, recipient)
}

// denialEnvelope is the JSON body of a denied call.
type denialEnvelope struct {
	OK      bool                 `json:"ok"`
	Code    Code                 `json:"code"`
	Error   string               `json:"error"`
	Threat  *ThreatInfo          `json:"threat"`
	Payment *PaymentInstructions `json:"payment"`
	Limit   int                  `json:"limit"`
	ResetAt string               `json:"reset_at"`
}

// Proxy routes one tool call through the firewall. Allowed calls
// return the decision envelope; denied calls return a *BlockedError
// carrying the verdict code and whatever the denial attached (threat
// details, payment instructions, rate-limit window).
func (c *Client) Proxy(ctx context.Context, req ProxyRequest, opts ...CallOption) (*ProxyResponse, error) {
	var cc callConfig
	for _, o := range opts {
		o(&cc)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("agentward: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/proxy", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agentward: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	if cc.paymentHeader != "" {
		httpReq.Header.Set(paymentHeaderName, cc.paymentHeader)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agentward: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("agentward: read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var out ProxyResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("agentward: decode response: %w", err)
		}
		return &out, nil
	}

	var denial denialEnvelope
	if err := json.Unmarshal(raw, &denial); err != nil {
		return nil, fmt.Errorf("agentward: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil, &BlockedError{
		Code:    denial.Code,
		Reason:  denial.Error,
		Status:  resp.StatusCode,
		Threat:  denial.Threat,
		Payment: denial.Payment,
		Limit:   denial.Limit,
		ResetAt: denial.ResetAt,
	}
}
