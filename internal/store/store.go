// Package store is the data-access layer for agent accounts, audit
// events, the shared threat feed, and bounty-tracker records. Three
// implementations share one interface: Remote (HTTP record-store API),
// SQLite (durable local deployment), and Memory (tests).
//
// Counter updates go through IncrementCounters. The SQLite store
// applies them atomically; the Remote and Memory stores use
// read-modify-write, so two concurrent requests for the same agent can
// lose an increment. That last-writer-wins behaviour is a deliberate
// availability-over-exactness trade-off, isolated behind this
// interface so it can be strengthened without touching the pipeline.
package store

import (
	"context"
	"errors"

	"github.com/ppiankov/agentward/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("store: record not found")

// CounterDelta is an additive update to an agent's running counters.
type CounterDelta struct {
	RequestsToday  int64
	RequestsTotal  int64
	ThreatsBlocked int64
	CreditsUSDC    float64
}

// Zero returns true when the delta changes nothing.
func (d CounterDelta) Zero() bool {
	return d.RequestsToday == 0 && d.RequestsTotal == 0 && d.ThreatsBlocked == 0 && d.CreditsUSDC == 0
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	Agents           int64   `json:"agents"`
	RequestsTotal    int64   `json:"requests_total"`
	ThreatsBlocked   int64   `json:"threats_blocked"`
	ThreatSignatures int64   `json:"threat_signatures"`
	TotalBounties    int64   `json:"total_bounties"`
	ActiveBounties   int64   `json:"active_bounties"`
	TotalEarnings    float64 `json:"total_earnings"`
}

// AccountStore resolves and mutates caller accounts.
type AccountStore interface {
	// AgentByAPIKey resolves a credential to its account, or ErrNotFound.
	AgentByAPIKey(ctx context.Context, apiKey string) (*model.Agent, error)

	// CreateAgent registers a new account.
	CreateAgent(ctx context.Context, agent *model.Agent) error

	// IncrementCounters applies an additive counter update.
	IncrementCounters(ctx context.Context, agentID string, delta CounterDelta) error
}

// EventStore appends and reads audit events. Events are append-only;
// there is no update or delete.
type EventStore interface {
	AppendEvent(ctx context.Context, ev model.Event) error
	EventsForAgent(ctx context.Context, agentID string, limit int) ([]model.Event, error)
}

// FeedStore maintains the shared, deduplicated threat feed.
type FeedStore interface {
	// UpsertThreatSignature records a signature; an existing hash is a
	// no-op so the feed stays deduplicated.
	UpsertThreatSignature(ctx context.Context, sig model.ThreatSignature) error
	ThreatSignatures(ctx context.Context, limit int) ([]model.ThreatSignature, error)
}

// BountyUpdate is a partial update to a bounty record. Nil fields are
// left untouched.
type BountyUpdate struct {
	Status   *model.BountyStatus
	PRURL    *string
	PRNumber *int
	PaidTx   *string
}

// BountyStore manages bounty-tracker records.
type BountyStore interface {
	CreateBounty(ctx context.Context, b *model.Bounty) error
	UpdateBounty(ctx context.Context, id string, update BountyUpdate) error
	Bounties(ctx context.Context, status model.BountyStatus, limit int) ([]model.Bounty, error)
	CreateEarning(ctx context.Context, e *model.Earning) error
	Earnings(ctx context.Context, limit int) ([]model.Earning, error)
	LogActivity(ctx context.Context, a *model.Activity) error
	Activities(ctx context.Context, limit int) ([]model.Activity, error)
}

// Store is the full record-store surface.
type Store interface {
	AccountStore
	EventStore
	FeedStore
	BountyStore

	// Stats aggregates across all record types.
	Stats(ctx context.Context) (Stats, error)
}
