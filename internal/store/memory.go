package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/agentward/internal/model"
)

// Memory is an in-process Store. Used by tests and by `agentward serve`
// when no backend is configured. Counter updates are read-modify-write
// under one lock, which serializes them within a single process; the
// documented weak-consistency trade-off only shows up on the Remote
// store.
type Memory struct {
	mu         sync.Mutex
	agents     map[string]*model.Agent // keyed by id
	byAPIKey   map[string]string       // api key to id
	events     []model.Event
	signatures map[string]model.ThreatSignature // keyed by hash
	sigOrder   []string
	bounties   map[string]*model.Bounty
	bountyIDs  []string
	earnings   []model.Earning
	activities []model.Activity
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		agents:     make(map[string]*model.Agent),
		byAPIKey:   make(map[string]string),
		signatures: make(map[string]model.ThreatSignature),
		bounties:   make(map[string]*model.Bounty),
	}
}

// AgentByAPIKey implements AccountStore.
func (m *Memory) AgentByAPIKey(_ context.Context, apiKey string) (*model.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byAPIKey[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.agents[id]
	return &cp, nil
}

// CreateAgent implements AccountStore.
func (m *Memory) CreateAgent(_ context.Context, agent *model.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	cp := *agent
	m.agents[cp.ID] = &cp
	m.byAPIKey[cp.APIKey] = cp.ID
	return nil
}

// IncrementCounters implements AccountStore.
func (m *Memory) IncrementCounters(_ context.Context, agentID string, delta CounterDelta) error {
	if delta.Zero() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok {
		return ErrNotFound
	}
	a.RequestsToday += delta.RequestsToday
	a.RequestsTotal += delta.RequestsTotal
	a.ThreatsBlocked += delta.ThreatsBlocked
	a.CreditsUSDC += delta.CreditsUSDC
	return nil
}

// AppendEvent implements EventStore.
func (m *Memory) AppendEvent(_ context.Context, ev model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, ev)
	return nil
}

// EventsForAgent implements EventStore. Newest first.
func (m *Memory) EventsForAgent(_ context.Context, agentID string, limit int) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.events[i].AgentID == agentID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// UpsertThreatSignature implements FeedStore.
func (m *Memory) UpsertThreatSignature(_ context.Context, sig model.ThreatSignature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.signatures[sig.SignatureHash]; exists {
		return nil
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	m.signatures[sig.SignatureHash] = sig
	m.sigOrder = append(m.sigOrder, sig.SignatureHash)
	return nil
}

// ThreatSignatures implements FeedStore. Newest first.
func (m *Memory) ThreatSignatures(_ context.Context, limit int) ([]model.ThreatSignature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ThreatSignature
	for i := len(m.sigOrder) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.signatures[m.sigOrder[i]])
	}
	return out, nil
}

// CreateBounty implements BountyStore.
func (m *Memory) CreateBounty(_ context.Context, b *model.Bounty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	cp := *b
	m.bounties[cp.ID] = &cp
	m.bountyIDs = append(m.bountyIDs, cp.ID)
	return nil
}

// UpdateBounty implements BountyStore.
func (m *Memory) UpdateBounty(_ context.Context, id string, update BountyUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bounties[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil {
		b.Status = *update.Status
	}
	if update.PRURL != nil {
		b.PRURL = *update.PRURL
	}
	if update.PRNumber != nil {
		b.PRNumber = *update.PRNumber
	}
	if update.PaidTx != nil {
		b.PaidTx = *update.PaidTx
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Bounties implements BountyStore. Newest first; empty status matches all.
func (m *Memory) Bounties(_ context.Context, status model.BountyStatus, limit int) ([]model.Bounty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Bounty
	for i := len(m.bountyIDs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		b := m.bounties[m.bountyIDs[i]]
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// CreateEarning implements BountyStore.
func (m *Memory) CreateEarning(_ context.Context, e *model.Earning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.earnings = append(m.earnings, *e)
	return nil
}

// Earnings implements BountyStore. Newest first.
func (m *Memory) Earnings(_ context.Context, limit int) ([]model.Earning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Earning
	for i := len(m.earnings) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.earnings[i])
	}
	return out, nil
}

// LogActivity implements BountyStore.
func (m *Memory) LogActivity(_ context.Context, a *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.activities = append(m.activities, *a)
	return nil
}

// Activities implements BountyStore. Newest first.
func (m *Memory) Activities(_ context.Context, limit int) ([]model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Activity
	for i := len(m.activities) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.activities[i])
	}
	return out, nil
}

// Stats implements Store.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Agents:           int64(len(m.agents)),
		ThreatSignatures: int64(len(m.signatures)),
		TotalBounties:    int64(len(m.bounties)),
	}
	for _, a := range m.agents {
		s.RequestsTotal += a.RequestsTotal
		s.ThreatsBlocked += a.ThreatsBlocked
	}
	for _, b := range m.bounties {
		if b.Active() {
			s.ActiveBounties++
		}
	}
	for _, e := range m.earnings {
		s.TotalEarnings += e.Amount
	}
	return s, nil
}
