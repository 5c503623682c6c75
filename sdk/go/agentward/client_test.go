package agentward

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// firewallStub emulates the server's decision envelopes.
func firewallStub(t *testing.T, status int, envelope map[string]any) (*httptest.Server, *http.Request, *[]byte) {
	t.Helper()
	var captured http.Request
	var capturedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		capturedBody = buf
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(envelope)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured, &capturedBody
}

func TestProxyAllowed(t *testing.T) {
	srv, captured, body := firewallStub(t, http.StatusOK, map[string]any{
		"ok":         true,
		"code":       "allow",
		"latency_ms": 3,
		"request":    map[string]any{"tool": "web_search"},
	})
	c := New(srv.URL, "aw_key")

	resp, err := c.Proxy(context.Background(), ProxyRequest{Tool: "web_search"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Code != CodeAllow {
		t.Fatalf("resp = %+v", resp)
	}
	if got := captured.Header.Get("X-API-Key"); got != "aw_key" {
		t.Errorf("X-API-Key = %q", got)
	}
	if !strings.Contains(string(*body), `"tool":"web_search"`) {
		t.Errorf("request body = %s", *body)
	}
}

func TestProxyBlockedThreat(t *testing.T) {
	srv, _, _ := firewallStub(t, http.StatusBadRequest, map[string]any{
		"ok":    false,
		"code":  "threat_blocked",
		"error": "threat detected: prompt_injection",
		"threat": map[string]any{
			"type":        "prompt_injection",
			"severity":    "high",
			"description": "Instruction override attempt",
		},
	})
	c := New(srv.URL, "aw_key")

	_, err := c.Proxy(context.Background(), ProxyRequest{Tool: "shell"})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want *BlockedError", err)
	}
	if blocked.Code != CodeThreatBlocked || blocked.Status != http.StatusBadRequest {
		t.Fatalf("blocked = %+v", blocked)
	}
	if blocked.Threat == nil || blocked.Threat.Type != "prompt_injection" {
		t.Fatalf("threat = %+v", blocked.Threat)
	}
	if !strings.Contains(blocked.Error(), "threat_blocked") {
		t.Errorf("Error() = %q", blocked.Error())
	}
}

func TestProxyPaymentRequired(t *testing.T) {
	srv, _, _ := firewallStub(t, http.StatusPaymentRequired, map[string]any{
		"ok":    false,
		"code":  "payment_required",
		"error": "free tier exhausted",
		"payment": map[string]any{
			"scheme":    "x402",
			"amount":    0.001,
			"currency":  "USDC",
			"network":   "solana",
			"recipient": "WALLETxyz",
		},
	})
	c := New(srv.URL, "aw_key")

	_, err := c.Proxy(context.Background(), ProxyRequest{Tool: "web_search"})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	if blocked.Code != CodePaymentRequired {
		t.Fatalf("code = %s", blocked.Code)
	}
	if blocked.Payment == nil || blocked.Payment.Amount != 0.001 || blocked.Payment.Recipient != "WALLETxyz" {
		t.Fatalf("payment = %+v", blocked.Payment)
	}
}

func TestProxySendsPaymentHeader(t *testing.T) {
	srv, captured, _ := firewallStub(t, http.StatusOK, map[string]any{
		"ok": true, "code": "allow",
	})
	c := New(srv.URL, "aw_key")

	header := PaymentHeader(0.001, "5KtP3k", "WALLETxyz")
	if _, err := c.Proxy(context.Background(), ProxyRequest{Tool: "web_search"}, WithPayment(header)); err != nil {
		t.Fatal(err)
	}

	got := captured.Header.Get("X-Payment")
	if got != "x402 usdc/solana amount=0.001 tx=5KtP3k recipient=WALLETxyz" {
		t.Errorf("X-Payment = %q", got)
	}
}

func TestProxyRateLimited(t *testing.T) {
	srv, _, _ := firewallStub(t, http.StatusTooManyRequests, map[string]any{
		"ok":       false,
		"code":     "rate_limited",
		"error":    "hourly limit reached",
		"limit":    1000,
		"reset_at": "2025-06-01T15:00:00Z",
	})
	c := New(srv.URL, "aw_key")

	_, err := c.Proxy(context.Background(), ProxyRequest{Tool: "web_search"})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	if blocked.Limit != 1000 || blocked.ResetAt == "" {
		t.Fatalf("blocked = %+v", blocked)
	}
}

func TestProxyServerUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:0", "aw_key")
	_, err := c.Proxy(context.Background(), ProxyRequest{Tool: "web_search"})
	if err == nil {
		t.Fatal("expected error")
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		t.Fatal("transport failure must not be a BlockedError")
	}
}
