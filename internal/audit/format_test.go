package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{AgentID: "agent-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Agent: agent-aaa") {
		t.Error("expected header to contain agent ID")
	}
	if !strings.Contains(out, "Summary:") {
		t.Error("expected summary line")
	}
	if !strings.Contains(out, "2 allow") {
		t.Errorf("expected '2 allow' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "2 block") {
		t.Errorf("expected '2 block' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Paid: 0.001000 USDC") {
		t.Errorf("expected paid total in summary, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{AgentID: "agent-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "BLOCK") {
		t.Error("expected BLOCK decision")
	}
	if !strings.Contains(out, "ALLOW") {
		t.Error("expected ALLOW decision")
	}
	if !strings.Contains(out, "file_read") {
		t.Error("expected file_read tool")
	}
	if !strings.Contains(out, "[prompt_injection]") {
		t.Error("expected [prompt_injection] tag")
	}
}

func TestFormatJSONValid(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{AgentID: "agent-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	jsonStr, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}

	// Should unmarshal back to a ReplayResult
	var parsed ReplayResult
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if parsed.AgentID != "agent-aaa" {
		t.Errorf("expected agent ID agent-aaa, got %s", parsed.AgentID)
	}
	if len(parsed.Entries) != 5 {
		t.Errorf("expected 5 entries in JSON, got %d", len(parsed.Entries))
	}
	if parsed.Summary.Total != 5 {
		t.Errorf("expected total 5 in JSON summary, got %d", parsed.Summary.Total)
	}
}

func TestFormatTimelineEmptyEntries(t *testing.T) {
	result := &ReplayResult{
		AgentID: "agent-empty",
	}

	out := FormatTimeline(result)
	if !strings.Contains(out, "No entries found") {
		t.Errorf("expected 'No entries found' message, got:\n%s", out)
	}
}
