package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/agentward/internal/model"
)

// Exercises one Store implementation against the shared contract.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	agent := &model.Agent{
		APIKey:          "key-1",
		Name:            "scout",
		Status:          model.StatusActive,
		Tier:            model.TierFree,
		PricePerRequest: 0.001,
		PriceLockedAt:   time.Now().UTC(),
	}
	if err := s.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if agent.ID == "" {
		t.Fatal("expected generated agent id")
	}

	got, err := s.AgentByAPIKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("AgentByAPIKey: %v", err)
	}
	if got.Name != "scout" || got.Tier != model.TierFree {
		t.Errorf("unexpected agent: %+v", got)
	}

	if _, err := s.AgentByAPIKey(ctx, "no-such-key"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Counter increments accumulate.
	if err := s.IncrementCounters(ctx, agent.ID, CounterDelta{RequestsToday: 1, RequestsTotal: 1}); err != nil {
		t.Fatalf("IncrementCounters: %v", err)
	}
	if err := s.IncrementCounters(ctx, agent.ID, CounterDelta{ThreatsBlocked: 2, CreditsUSDC: 0.002}); err != nil {
		t.Fatalf("IncrementCounters: %v", err)
	}
	got, _ = s.AgentByAPIKey(ctx, "key-1")
	if got.RequestsToday != 1 || got.RequestsTotal != 1 || got.ThreatsBlocked != 2 {
		t.Errorf("counters not applied: %+v", got)
	}
	if got.CreditsUSDC < 0.0019 || got.CreditsUSDC > 0.0021 {
		t.Errorf("credits not applied: %g", got.CreditsUSDC)
	}

	if err := s.IncrementCounters(ctx, "missing", CounterDelta{RequestsTotal: 1}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing agent, got %v", err)
	}

	// Events append and list newest-first.
	for i, typ := range []model.EventType{model.EventToolCall, model.EventThreatBlocked} {
		ev := model.Event{
			AgentID:   agent.ID,
			Type:      typ,
			ToolName:  "web_search",
			Decision:  model.DecisionAllow,
			LatencyMS: int64(i),
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}
	events, err := s.EventsForAgent(ctx, agent.ID, 10)
	if err != nil {
		t.Fatalf("EventsForAgent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != model.EventThreatBlocked {
		t.Errorf("expected newest event first, got %s", events[0].Type)
	}

	// Threat feed dedups on hash.
	sig := model.ThreatSignature{
		SignatureHash: "abc123",
		ThreatType:    model.ThreatPromptInjection,
		Pattern:       "ignore previous instructions",
		Description:   "override attempt",
		Severity:      model.SevHigh,
		SourceAgentID: agent.ID,
	}
	if err := s.UpsertThreatSignature(ctx, sig); err != nil {
		t.Fatalf("UpsertThreatSignature: %v", err)
	}
	if err := s.UpsertThreatSignature(ctx, sig); err != nil {
		t.Fatalf("UpsertThreatSignature (dup): %v", err)
	}
	sigs, err := s.ThreatSignatures(ctx, 10)
	if err != nil {
		t.Fatalf("ThreatSignatures: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected deduplicated feed of 1, got %d", len(sigs))
	}

	// Bounty lifecycle.
	b := &model.Bounty{
		RepoOwner:   "octocat",
		RepoName:    "hello-world",
		IssueNumber: 42,
		IssueTitle:  "fix parser crash",
		IssueURL:    "https://github.com/octocat/hello-world/issues/42",
		Status:      model.BountyFound,
	}
	if err := s.CreateBounty(ctx, b); err != nil {
		t.Fatalf("CreateBounty: %v", err)
	}
	working := model.BountyWorking
	if err := s.UpdateBounty(ctx, b.ID, BountyUpdate{Status: &working}); err != nil {
		t.Fatalf("UpdateBounty: %v", err)
	}
	bounties, err := s.Bounties(ctx, model.BountyWorking, 10)
	if err != nil {
		t.Fatalf("Bounties: %v", err)
	}
	if len(bounties) != 1 || bounties[0].Status != model.BountyWorking {
		t.Errorf("expected 1 working bounty, got %+v", bounties)
	}

	if err := s.CreateEarning(ctx, &model.Earning{BountyID: b.ID, Amount: 50, Currency: "USDC", TxSignature: "tx1", Source: "bounty"}); err != nil {
		t.Fatalf("CreateEarning: %v", err)
	}
	if err := s.LogActivity(ctx, &model.Activity{Action: "bounty_found", BountyID: b.ID, Success: true}); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Agents != 1 || st.ThreatSignatures != 1 || st.TotalBounties != 1 || st.ActiveBounties != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.TotalEarnings != 50 {
		t.Errorf("expected earnings 50, got %g", st.TotalEarnings)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "ward.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryAgentCopyIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := &model.Agent{APIKey: "k", Name: "n", Status: model.StatusActive, Tier: model.TierFree}
	if err := m.CreateAgent(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, _ := m.AgentByAPIKey(ctx, "k")
	got.RequestsToday = 999

	again, _ := m.AgentByAPIKey(ctx, "k")
	if again.RequestsToday != 0 {
		t.Error("returned agent must be a copy, not shared state")
	}
}
