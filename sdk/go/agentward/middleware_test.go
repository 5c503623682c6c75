package agentward

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrapAllowedPassesRedactedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"code": "allow",
			"request": map[string]any{
				"tool": "http_post",
				"data": map[string]any{"auth": "[REDACTED:openai_api_key]"},
			},
			"redactions": []map[string]any{
				{"kind": "openai_api_key", "placeholder": "[REDACTED:openai_api_key]"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "aw_key")
	var seen ProxyRequest
	wrapped := c.Wrap(func(ctx context.Context, req ProxyRequest) (any, error) {
		seen = req
		return "done", nil
	})

	out, err := wrapped(context.Background(), ProxyRequest{
		Tool: "http_post",
		Data: map[string]any{"auth": "sk-ABCDEFGHIJKLMNOPQRSTUV"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "done" {
		t.Fatalf("out = %v", out)
	}

	data, ok := seen.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", seen.Data)
	}
	if data["auth"] != "[REDACTED:openai_api_key]" {
		t.Errorf("wrapped fn saw raw secret: %v", data["auth"])
	}
}

func TestWrapBlockedSkipsTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"code":  "threat_blocked",
			"error": "threat detected",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "aw_key")
	called := false
	wrapped := c.Wrap(func(ctx context.Context, req ProxyRequest) (any, error) {
		called = true
		return nil, nil
	})

	_, err := wrapped(context.Background(), ProxyRequest{Tool: "shell"})
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("tool ran despite denial")
	}
}
