package model

import "time"

// BountyStatus tracks a bounty record through its lifecycle.
type BountyStatus string

const (
	BountyFound       BountyStatus = "found"
	BountyAnalyzing   BountyStatus = "analyzing"
	BountyWorking     BountyStatus = "working"
	BountyPRSubmitted BountyStatus = "pr_submitted"
	BountyMerged      BountyStatus = "merged"
	BountyPaid        BountyStatus = "paid"
	BountyAbandoned   BountyStatus = "abandoned"
)

// Bounty is one tracked bounty-labeled issue.
type Bounty struct {
	ID             string       `json:"id,omitempty"`
	RepoOwner      string       `json:"repo_owner"`
	RepoName       string       `json:"repo_name"`
	IssueNumber    int          `json:"issue_number"`
	IssueTitle     string       `json:"issue_title"`
	IssueURL       string       `json:"issue_url"`
	BountyAmount   float64      `json:"bounty_amount,omitempty"`
	BountyCurrency string       `json:"bounty_currency,omitempty"`
	Status         BountyStatus `json:"status"`
	PRURL          string       `json:"pr_url,omitempty"`
	PRNumber       int          `json:"pr_number,omitempty"`
	PaidTx         string       `json:"paid_tx,omitempty"`
	Labels         []string     `json:"labels,omitempty"`
	Difficulty     string       `json:"difficulty,omitempty"`
	CreatedAt      time.Time    `json:"created_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at,omitempty"`
}

// Active returns true while the bounty is being pursued.
func (b Bounty) Active() bool {
	switch b.Status {
	case BountyAnalyzing, BountyWorking, BountyPRSubmitted:
		return true
	}
	return false
}

// Completed returns true once the bounty is merged or paid out.
func (b Bounty) Completed() bool {
	return b.Status == BountyMerged || b.Status == BountyPaid
}

// Earning records one payout received for a bounty.
type Earning struct {
	ID          string    `json:"id,omitempty"`
	BountyID    string    `json:"bounty_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	TxSignature string    `json:"tx_signature"`
	Source      string    `json:"source"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Activity is one row in the append-only activity log.
type Activity struct {
	ID        string         `json:"id,omitempty"`
	Action    string         `json:"action"`
	BountyID  string         `json:"bounty_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Success   bool           `json:"success"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}
