package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/agentward/internal/model"
)

// recordStoreStub is a minimal fake of the remote record-store API:
// just enough of /db/agents and /db/events to exercise the client.
type recordStoreStub struct {
	mu     sync.Mutex
	agents map[string]*model.Agent
	events []model.Event
	// lastAuth captures the Authorization header for assertion.
	lastAuth string
}

func (s *recordStoreStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastAuth = r.Header.Get("Authorization")

		write := func(data any) {
			w.Header().Set("Content-Type", "application/json")
			raw, _ := json.Marshal(data)
			fmt.Fprintf(w, `{"ok":true,"data":%s}`, raw)
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/db/agents":
			where := r.URL.Query().Get("where")
			var out []*model.Agent
			for _, a := range s.agents {
				switch {
				case strings.HasPrefix(where, "api_key:eq:"):
					if a.APIKey == strings.TrimPrefix(where, "api_key:eq:") {
						out = append(out, a)
					}
				case strings.HasPrefix(where, "id:eq:"):
					if a.ID == strings.TrimPrefix(where, "id:eq:") {
						out = append(out, a)
					}
				default:
					out = append(out, a)
				}
			}
			write(out)

		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/db/agents/"):
			id := strings.TrimPrefix(r.URL.Path, "/db/agents/")
			a, ok := s.agents[id]
			if !ok {
				fmt.Fprint(w, `{"ok":false,"error":{"code":"not_found","message":"no such agent"}}`)
				return
			}
			var updates map[string]any
			json.NewDecoder(r.Body).Decode(&updates)
			if v, ok := updates["requests_today"].(float64); ok {
				a.RequestsToday = int64(v)
			}
			if v, ok := updates["requests_total"].(float64); ok {
				a.RequestsTotal = int64(v)
			}
			if v, ok := updates["threats_blocked"].(float64); ok {
				a.ThreatsBlocked = int64(v)
			}
			if v, ok := updates["credits_usdc"].(float64); ok {
				a.CreditsUSDC = v
			}
			write(a)

		case r.Method == http.MethodPost && r.URL.Path == "/db/events":
			var ev model.Event
			json.NewDecoder(r.Body).Decode(&ev)
			s.events = append(s.events, ev)
			write(ev)

		default:
			fmt.Fprint(w, `{"ok":false,"error":{"code":"not_found","message":"no such route"}}`)
		}
	})
}

func newRemoteFixture(t *testing.T) (*Remote, *recordStoreStub) {
	t.Helper()
	stub := &recordStoreStub{agents: map[string]*model.Agent{
		"a1": {ID: "a1", APIKey: "key-1", Name: "scout", Status: model.StatusActive, Tier: model.TierFree, RequestsToday: 5},
	}}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewRemote(srv.URL, "service-key"), stub
}

func TestRemoteAgentLookup(t *testing.T) {
	r, stub := newRemoteFixture(t)

	a, err := r.AgentByAPIKey(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("AgentByAPIKey: %v", err)
	}
	if a.ID != "a1" || a.RequestsToday != 5 {
		t.Errorf("unexpected agent: %+v", a)
	}
	if stub.lastAuth != "Bearer service-key" {
		t.Errorf("expected bearer service key, got %q", stub.lastAuth)
	}
}

func TestRemoteAgentLookupNotFound(t *testing.T) {
	r, _ := newRemoteFixture(t)
	if _, err := r.AgentByAPIKey(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteIncrementIsReadModifyWrite(t *testing.T) {
	r, stub := newRemoteFixture(t)

	err := r.IncrementCounters(context.Background(), "a1", CounterDelta{RequestsToday: 1, RequestsTotal: 1})
	if err != nil {
		t.Fatalf("IncrementCounters: %v", err)
	}
	if stub.agents["a1"].RequestsToday != 6 {
		t.Errorf("expected requests_today=6, got %d", stub.agents["a1"].RequestsToday)
	}
	if stub.agents["a1"].RequestsTotal != 1 {
		t.Errorf("expected requests_total=1, got %d", stub.agents["a1"].RequestsTotal)
	}
}

func TestRemoteIncrementMissingAgent(t *testing.T) {
	r, _ := newRemoteFixture(t)
	if err := r.IncrementCounters(context.Background(), "ghost", CounterDelta{RequestsTotal: 1}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteAppendEvent(t *testing.T) {
	r, stub := newRemoteFixture(t)

	ev := model.Event{AgentID: "a1", Type: model.EventToolCall, ToolName: "web_search", Decision: model.DecisionAllow}
	if err := r.AppendEvent(context.Background(), ev); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if len(stub.events) != 1 || stub.events[0].ToolName != "web_search" {
		t.Errorf("event not recorded: %+v", stub.events)
	}
}

func TestRemoteUnreachable(t *testing.T) {
	r := NewRemote("http://127.0.0.1:0", "k")
	if _, err := r.AgentByAPIKey(context.Background(), "key"); err == nil {
		t.Fatal("expected transport error")
	}
}
