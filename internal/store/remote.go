package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/agentward/internal/model"
)

// Remote is a Store backed by a generic record-store HTTP API: tables
// under /db/<table>, bearer service key, `{ok, data, error}` envelopes.
//
// Counter updates here are read-modify-write over the network: two
// concurrent requests from the same agent can both read N and both
// write N+1, undercounting by one. Accepted trade-off (availability
// over exact metering); the SQLite store is the strengthened variant.
type Remote struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewRemote creates a record-store client.
func NewRemote(baseURL, serviceKey string) *Remote {
	return &Remote{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type apiEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs one API request and decodes the data payload into out
// (which may be nil for write-only calls).
func (r *Remote) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("store: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("store: decode response (%s %s, status %d): %w", method, path, resp.StatusCode, err)
	}
	if !env.OK {
		if env.Error != nil && env.Error.Code == "not_found" {
			return ErrNotFound
		}
		msg := "unknown error"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return fmt.Errorf("store: %s %s: %s", method, path, msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("store: decode data: %w", err)
		}
	}
	return nil
}

// AgentByAPIKey implements AccountStore.
func (r *Remote) AgentByAPIKey(ctx context.Context, apiKey string) (*model.Agent, error) {
	path := "/db/agents?where=api_key:eq:" + url.QueryEscape(apiKey) + "&limit=1"
	var agents []model.Agent
	if err := r.call(ctx, http.MethodGet, path, nil, &agents); err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, ErrNotFound
	}
	return &agents[0], nil
}

// CreateAgent implements AccountStore.
func (r *Remote) CreateAgent(ctx context.Context, agent *model.Agent) error {
	return r.call(ctx, http.MethodPost, "/db/agents", agent, agent)
}

// IncrementCounters implements AccountStore. Read-modify-write; see
// the type comment for the consistency caveat.
func (r *Remote) IncrementCounters(ctx context.Context, agentID string, delta CounterDelta) error {
	if delta.Zero() {
		return nil
	}

	var agents []model.Agent
	path := "/db/agents?where=id:eq:" + url.QueryEscape(agentID) + "&limit=1"
	if err := r.call(ctx, http.MethodGet, path, nil, &agents); err != nil {
		return err
	}
	if len(agents) == 0 {
		return ErrNotFound
	}
	a := agents[0]

	updates := map[string]any{
		"requests_today":  a.RequestsToday + delta.RequestsToday,
		"requests_total":  a.RequestsTotal + delta.RequestsTotal,
		"threats_blocked": a.ThreatsBlocked + delta.ThreatsBlocked,
		"credits_usdc":    a.CreditsUSDC + delta.CreditsUSDC,
	}
	return r.call(ctx, http.MethodPatch, "/db/agents/"+url.PathEscape(agentID), updates, nil)
}

// AppendEvent implements EventStore.
func (r *Remote) AppendEvent(ctx context.Context, ev model.Event) error {
	return r.call(ctx, http.MethodPost, "/db/events", ev, nil)
}

// EventsForAgent implements EventStore.
func (r *Remote) EventsForAgent(ctx context.Context, agentID string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/db/events?where=agent_id:eq:%s&order=created_at:desc&limit=%d",
		url.QueryEscape(agentID), limit)
	var events []model.Event
	if err := r.call(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// UpsertThreatSignature implements FeedStore. The record store dedups
// on the signature_hash primary key; a duplicate insert is not an
// error for the caller.
func (r *Remote) UpsertThreatSignature(ctx context.Context, sig model.ThreatSignature) error {
	err := r.call(ctx, http.MethodPost, "/db/threat_signatures", sig, nil)
	if err != nil && err != ErrNotFound {
		// Duplicate hash means the feed already knows this threat.
		var existing []model.ThreatSignature
		path := "/db/threat_signatures?where=signature_hash:eq:" + url.QueryEscape(sig.SignatureHash) + "&limit=1"
		if lookupErr := r.call(ctx, http.MethodGet, path, nil, &existing); lookupErr == nil && len(existing) > 0 {
			return nil
		}
	}
	return err
}

// ThreatSignatures implements FeedStore.
func (r *Remote) ThreatSignatures(ctx context.Context, limit int) ([]model.ThreatSignature, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/db/threat_signatures?order=created_at:desc&limit=%d", limit)
	var sigs []model.ThreatSignature
	if err := r.call(ctx, http.MethodGet, path, nil, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// CreateBounty implements BountyStore.
func (r *Remote) CreateBounty(ctx context.Context, b *model.Bounty) error {
	return r.call(ctx, http.MethodPost, "/db/bounties", b, b)
}

// UpdateBounty implements BountyStore.
func (r *Remote) UpdateBounty(ctx context.Context, id string, update BountyUpdate) error {
	updates := map[string]any{}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.PRURL != nil {
		updates["pr_url"] = *update.PRURL
	}
	if update.PRNumber != nil {
		updates["pr_number"] = *update.PRNumber
	}
	if update.PaidTx != nil {
		updates["paid_tx"] = *update.PaidTx
	}
	if len(updates) == 0 {
		return nil
	}
	return r.call(ctx, http.MethodPatch, "/db/bounties/"+url.PathEscape(id), updates, nil)
}

// Bounties implements BountyStore.
func (r *Remote) Bounties(ctx context.Context, status model.BountyStatus, limit int) ([]model.Bounty, error) {
	if limit <= 0 {
		limit = 100
	}
	path := "/db/bounties?order=created_at:desc"
	if status != "" {
		path += "&where=status:eq:" + url.QueryEscape(string(status))
	}
	path += fmt.Sprintf("&limit=%d", limit)
	var bounties []model.Bounty
	if err := r.call(ctx, http.MethodGet, path, nil, &bounties); err != nil {
		return nil, err
	}
	return bounties, nil
}

// CreateEarning implements BountyStore.
func (r *Remote) CreateEarning(ctx context.Context, e *model.Earning) error {
	return r.call(ctx, http.MethodPost, "/db/earnings", e, nil)
}

// Earnings implements BountyStore.
func (r *Remote) Earnings(ctx context.Context, limit int) ([]model.Earning, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/db/earnings?order=created_at:desc&limit=%d", limit)
	var earnings []model.Earning
	if err := r.call(ctx, http.MethodGet, path, nil, &earnings); err != nil {
		return nil, err
	}
	return earnings, nil
}

// LogActivity implements BountyStore.
func (r *Remote) LogActivity(ctx context.Context, a *model.Activity) error {
	return r.call(ctx, http.MethodPost, "/db/activity_log", a, nil)
}

// Activities implements BountyStore.
func (r *Remote) Activities(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/db/activity_log?order=created_at:desc&limit=%d", limit)
	var activities []model.Activity
	if err := r.call(ctx, http.MethodGet, path, nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Stats implements Store. Aggregated client-side from the individual
// tables, matching the dashboard's needs rather than a server report.
func (r *Remote) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	bounties, err := r.Bounties(ctx, "", 1000)
	if err != nil {
		return st, err
	}
	st.TotalBounties = int64(len(bounties))
	for _, b := range bounties {
		if b.Active() {
			st.ActiveBounties++
		}
	}

	earnings, err := r.Earnings(ctx, 1000)
	if err != nil {
		return st, err
	}
	for _, e := range earnings {
		st.TotalEarnings += e.Amount
	}

	sigs, err := r.ThreatSignatures(ctx, 1000)
	if err != nil {
		return st, err
	}
	st.ThreatSignatures = int64(len(sigs))

	var agents []model.Agent
	if err := r.call(ctx, http.MethodGet, "/db/agents?limit=1000", nil, &agents); err != nil {
		return st, err
	}
	st.Agents = int64(len(agents))
	for _, a := range agents {
		st.RequestsTotal += a.RequestsTotal
		st.ThreatsBlocked += a.ThreatsBlocked
	}

	return st, nil
}
