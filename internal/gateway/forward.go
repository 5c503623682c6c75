package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/agentward/internal/model"
)

// DefaultForwardTimeout bounds the outbound leg. A single attempt, no
// retry; expiry surfaces as proxy_error.
const DefaultForwardTimeout = 10 * time.Second

// maxForwardBody caps how much of an upstream response is read back.
const maxForwardBody = 4 << 20

// ForwardResult is the upstream response carried back to the caller.
type ForwardResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Forwarder performs the outbound leg of a proxied call.
type Forwarder struct {
	client *http.Client
}

// NewForwarder creates a forwarder with the given per-call timeout.
// A zero timeout selects DefaultForwardTimeout.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	return &Forwarder{client: &http.Client{Timeout: timeout}}
}

// Do sends the (possibly redacted) payload to the request's target URL.
// Method defaults to GET, which carries no body; declared headers are
// copied onto the outbound request.
func (f *Forwarder) Do(ctx context.Context, req model.ProxyRequest, payload string) (*ForwardResult, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method != http.MethodGet && payload != "" {
		body = strings.NewReader(payload)
	}

	out, err := http.NewRequestWithContext(ctx, method, req.TargetURL, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build outbound request: %w", err)
	}
	out.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		out.Header.Set(k, v)
	}

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("gateway: forward to %s: %w", req.TargetURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxForwardBody))
	if err != nil {
		return nil, fmt.Errorf("gateway: read upstream response: %w", err)
	}

	return &ForwardResult{Status: resp.StatusCode, Body: string(raw)}, nil
}
