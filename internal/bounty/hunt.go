package bounty

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/model"
	"github.com/ppiankov/agentward/internal/store"
)

// HuntResult summarizes one discovery run.
type HuntResult struct {
	Found   int            `json:"found"`
	Added   int            `json:"added"`
	Skipped int            `json:"skipped"`
	New     []model.Bounty `json:"new_bounties,omitempty"`
}

// Hunter discovers bounty-labeled issues and records the new ones.
type Hunter struct {
	client *Client
	st     store.BountyStore
	labels []string
	log    *zap.Logger
}

// NewHunter wires a discovery client to the record store.
func NewHunter(client *Client, st store.BountyStore, labels []string, log *zap.Logger) *Hunter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hunter{client: client, st: st, labels: labels, log: log}
}

// Hunt searches for bounty-labeled issues and records each one not
// already tracked. Already-tracked issues are deduplicated by issue
// URL. Every run is written to the activity log, successful or not.
func (h *Hunter) Hunt(ctx context.Context, limit int) (HuntResult, error) {
	_ = h.st.LogActivity(ctx, &model.Activity{Action: "hunt_started", Success: true})

	issues, err := h.client.SearchIssues(ctx, h.labels, limit)
	if err != nil {
		_ = h.st.LogActivity(ctx, &model.Activity{
			Action:  "hunt_failed",
			Details: map[string]any{"error": err.Error()},
		})
		return HuntResult{}, fmt.Errorf("bounty: search: %w", err)
	}

	existing, err := h.st.Bounties(ctx, "", 1000)
	if err != nil {
		return HuntResult{}, fmt.Errorf("bounty: list existing: %w", err)
	}
	tracked := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		tracked[b.IssueURL] = struct{}{}
	}

	result := HuntResult{Found: len(issues)}
	for _, issue := range issues {
		if _, dup := tracked[issue.HTMLURL]; dup {
			result.Skipped++
			continue
		}

		owner, repo, ok := ParseRepoURL(issue.RepositoryURL)
		if !ok {
			continue
		}

		amount := ExtractAmount(issue.Title)
		if amount == nil {
			amount = ExtractAmount(issue.Body)
		}

		names := make([]string, len(issue.Labels))
		for i, l := range issue.Labels {
			names[i] = l.Name
		}

		b := &model.Bounty{
			RepoOwner:   owner,
			RepoName:    repo,
			IssueNumber: issue.Number,
			IssueTitle:  issue.Title,
			IssueURL:    issue.HTMLURL,
			Status:      model.BountyFound,
			Labels:      names,
			Difficulty:  Difficulty(names),
		}
		if amount != nil {
			b.BountyAmount = amount.Value
			b.BountyCurrency = amount.Currency
		}

		if err := h.st.CreateBounty(ctx, b); err != nil {
			h.log.Warn("bounty record failed", zap.String("issue", issue.HTMLURL), zap.Error(err))
			continue
		}
		result.Added++
		result.New = append(result.New, *b)
	}

	_ = h.st.LogActivity(ctx, &model.Activity{
		Action: "hunt_completed",
		Details: map[string]any{
			"found": result.Found, "added": result.Added, "skipped": result.Skipped,
		},
		Success: true,
	})
	h.log.Info("hunt completed",
		zap.Int("found", result.Found),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
