package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Agent: %s | No entries found.\n", result.AgentID)
	}

	var b strings.Builder

	first := result.Summary.FirstTimestamp
	last := result.Summary.LastTimestamp
	firstTime := formatDateRange(first)
	lastTime := formatTimeOnly(last)
	b.WriteString(fmt.Sprintf("Agent: %s | %s–%s UTC\n", result.AgentID, firstTime, lastTime))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		decision := strings.ToUpper(e.Decision)
		tool := truncate(e.Tool, 16)
		detail := truncate(e.Action, 34)

		tag := ""
		if e.ThreatType != "" {
			tag = "  [" + e.ThreatType + "]"
		}

		b.WriteString(fmt.Sprintf("%-10s %-8s %-18s %-34s%s\n",
			ts, decision, tool, detail, tag))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	if s.RedactCount > 0 {
		parts = append(parts, fmt.Sprintf("%d redact", s.RedactCount))
	}
	if s.ThreatCount > 0 {
		parts = append(parts, fmt.Sprintf("%d threats", s.ThreatCount))
	}
	if len(parts) == 0 {
		parts = append(parts, "no decisions")
	}

	line := fmt.Sprintf("Summary: %s", strings.Join(parts, ", "))
	if s.PaidUSDC > 0 {
		line += fmt.Sprintf(" | Paid: %.6f USDC", s.PaidUSDC)
	}
	return line + "\n"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
