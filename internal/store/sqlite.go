package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/agentward/internal/model"
)

// SQLite is a durable local Store backed by modernc.org/sqlite (no
// cgo). Counter updates use additive SQL, so concurrent increments for
// the same agent never lose writes here.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	api_key TEXT NOT NULL UNIQUE,
	agent_name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	subscription_tier TEXT NOT NULL DEFAULT 'free',
	requests_today INTEGER NOT NULL DEFAULT 0,
	requests_total INTEGER NOT NULL DEFAULT 0,
	threats_blocked INTEGER NOT NULL DEFAULT 0,
	price_per_request REAL NOT NULL DEFAULT 0.001,
	credits_usdc REAL NOT NULL DEFAULT 0,
	price_locked_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	request_data TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL,
	threat_detected INTEGER NOT NULL DEFAULT 0,
	threat_type TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id, created_at DESC);
CREATE TABLE IF NOT EXISTS threat_signatures (
	signature_hash TEXT PRIMARY KEY,
	threat_type TEXT NOT NULL,
	pattern TEXT NOT NULL,
	description TEXT NOT NULL,
	severity TEXT NOT NULL,
	source_agent_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bounties (
	id TEXT PRIMARY KEY,
	repo_owner TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	issue_number INTEGER NOT NULL,
	issue_title TEXT NOT NULL,
	issue_url TEXT NOT NULL,
	bounty_amount REAL NOT NULL DEFAULT 0,
	bounty_currency TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	pr_url TEXT NOT NULL DEFAULT '',
	pr_number INTEGER NOT NULL DEFAULT 0,
	paid_tx TEXT NOT NULL DEFAULT '',
	labels TEXT NOT NULL DEFAULT '[]',
	difficulty TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS earnings (
	id TEXT PRIMARY KEY,
	bounty_id TEXT NOT NULL,
	amount REAL NOT NULL,
	currency TEXT NOT NULL,
	tx_signature TEXT NOT NULL,
	source TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	bounty_id TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '{}',
	success INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
`

// OpenSQLite opens (or creates) the database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// Single writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY under concurrent pipeline requests.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}

// AgentByAPIKey implements AccountStore.
func (s *SQLite) AgentByAPIKey(ctx context.Context, apiKey string) (*model.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, api_key, agent_name, status, subscription_tier,
		       requests_today, requests_total, threats_blocked,
		       price_per_request, credits_usdc, price_locked_at, created_at
		FROM agents WHERE api_key = ?`, apiKey)

	var a model.Agent
	var lockedAt, createdAt string
	err := row.Scan(&a.ID, &a.APIKey, &a.Name, &a.Status, &a.Tier,
		&a.RequestsToday, &a.RequestsTotal, &a.ThreatsBlocked,
		&a.PricePerRequest, &a.CreditsUSDC, &lockedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: agent lookup: %w", err)
	}
	a.PriceLockedAt = parseTS(lockedAt)
	a.CreatedAt = parseTS(createdAt)
	return &a, nil
}

// CreateAgent implements AccountStore.
func (s *SQLite) CreateAgent(ctx context.Context, agent *model.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, api_key, agent_name, status, subscription_tier,
			requests_today, requests_total, threats_blocked,
			price_per_request, credits_usdc, price_locked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.APIKey, agent.Name, agent.Status, agent.Tier,
		agent.RequestsToday, agent.RequestsTotal, agent.ThreatsBlocked,
		agent.PricePerRequest, agent.CreditsUSDC, ts(agent.PriceLockedAt), ts(agent.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: create agent: %w", err)
	}
	return nil
}

// IncrementCounters implements AccountStore. Additive update, atomic
// at the database.
func (s *SQLite) IncrementCounters(ctx context.Context, agentID string, delta CounterDelta) error {
	if delta.Zero() {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agents SET
			requests_today = requests_today + ?,
			requests_total = requests_total + ?,
			threats_blocked = threats_blocked + ?,
			credits_usdc = credits_usdc + ?
		WHERE id = ?`,
		delta.RequestsToday, delta.RequestsTotal, delta.ThreatsBlocked, delta.CreditsUSDC, agentID)
	if err != nil {
		return fmt.Errorf("store: increment counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent implements EventStore.
func (s *SQLite) AppendEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, agent_id, event_type, tool_name, request_data,
			decision, threat_detected, threat_type, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.AgentID, ev.Type, ev.ToolName, ev.RequestData,
		ev.Decision, boolInt(ev.ThreatDetected), ev.ThreatType, ev.LatencyMS, ts(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: append event: %w", err)
	}
	return nil
}

// EventsForAgent implements EventStore.
func (s *SQLite) EventsForAgent(ctx context.Context, agentID string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, event_type, tool_name, request_data,
		       decision, threat_detected, threat_type, latency_ms, created_at
		FROM events WHERE agent_id = ?
		ORDER BY created_at DESC LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		var detected int
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.AgentID, &ev.Type, &ev.ToolName, &ev.RequestData,
			&ev.Decision, &detected, &ev.ThreatType, &ev.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev.ThreatDetected = detected != 0
		ev.CreatedAt = parseTS(createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UpsertThreatSignature implements FeedStore.
func (s *SQLite) UpsertThreatSignature(ctx context.Context, sig model.ThreatSignature) error {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threat_signatures (signature_hash, threat_type, pattern,
			description, severity, source_agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature_hash) DO NOTHING`,
		sig.SignatureHash, sig.ThreatType, sig.Pattern,
		sig.Description, sig.Severity, sig.SourceAgentID, ts(sig.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: upsert signature: %w", err)
	}
	return nil
}

// ThreatSignatures implements FeedStore.
func (s *SQLite) ThreatSignatures(ctx context.Context, limit int) ([]model.ThreatSignature, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT signature_hash, threat_type, pattern, description, severity,
		       source_agent_id, created_at
		FROM threat_signatures ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list signatures: %w", err)
	}
	defer rows.Close()

	var out []model.ThreatSignature
	for rows.Next() {
		var sig model.ThreatSignature
		var createdAt string
		if err := rows.Scan(&sig.SignatureHash, &sig.ThreatType, &sig.Pattern,
			&sig.Description, &sig.Severity, &sig.SourceAgentID, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan signature: %w", err)
		}
		sig.CreatedAt = parseTS(createdAt)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// CreateBounty implements BountyStore.
func (s *SQLite) CreateBounty(ctx context.Context, b *model.Bounty) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	labels, _ := json.Marshal(b.Labels)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bounties (id, repo_owner, repo_name, issue_number, issue_title,
			issue_url, bounty_amount, bounty_currency, status, pr_url, pr_number,
			paid_tx, labels, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.RepoOwner, b.RepoName, b.IssueNumber, b.IssueTitle,
		b.IssueURL, b.BountyAmount, b.BountyCurrency, b.Status, b.PRURL, b.PRNumber,
		b.PaidTx, string(labels), b.Difficulty, ts(b.CreatedAt), ts(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store: create bounty: %w", err)
	}
	return nil
}

// UpdateBounty implements BountyStore.
func (s *SQLite) UpdateBounty(ctx context.Context, id string, update BountyUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{ts(time.Now().UTC())}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.PRURL != nil {
		sets = append(sets, "pr_url = ?")
		args = append(args, *update.PRURL)
	}
	if update.PRNumber != nil {
		sets = append(sets, "pr_number = ?")
		args = append(args, *update.PRNumber)
	}
	if update.PaidTx != nil {
		sets = append(sets, "paid_tx = ?")
		args = append(args, *update.PaidTx)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE bounties SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("store: update bounty: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Bounties implements BountyStore.
func (s *SQLite) Bounties(ctx context.Context, status model.BountyStatus, limit int) ([]model.Bounty, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, repo_owner, repo_name, issue_number, issue_title, issue_url,
		       bounty_amount, bounty_currency, status, pr_url, pr_number,
		       paid_tx, labels, difficulty, created_at, updated_at
		FROM bounties`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list bounties: %w", err)
	}
	defer rows.Close()

	var out []model.Bounty
	for rows.Next() {
		var b model.Bounty
		var labels, createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.RepoOwner, &b.RepoName, &b.IssueNumber, &b.IssueTitle,
			&b.IssueURL, &b.BountyAmount, &b.BountyCurrency, &b.Status, &b.PRURL, &b.PRNumber,
			&b.PaidTx, &labels, &b.Difficulty, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan bounty: %w", err)
		}
		json.Unmarshal([]byte(labels), &b.Labels)
		b.CreatedAt = parseTS(createdAt)
		b.UpdatedAt = parseTS(updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateEarning implements BountyStore.
func (s *SQLite) CreateEarning(ctx context.Context, e *model.Earning) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO earnings (id, bounty_id, amount, currency, tx_signature, source, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BountyID, e.Amount, e.Currency, e.TxSignature, e.Source, e.Notes, ts(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: create earning: %w", err)
	}
	return nil
}

// Earnings implements BountyStore.
func (s *SQLite) Earnings(ctx context.Context, limit int) ([]model.Earning, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bounty_id, amount, currency, tx_signature, source, notes, created_at
		FROM earnings ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list earnings: %w", err)
	}
	defer rows.Close()

	var out []model.Earning
	for rows.Next() {
		var e model.Earning
		var createdAt string
		if err := rows.Scan(&e.ID, &e.BountyID, &e.Amount, &e.Currency,
			&e.TxSignature, &e.Source, &e.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan earning: %w", err)
		}
		e.CreatedAt = parseTS(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LogActivity implements BountyStore.
func (s *SQLite) LogActivity(ctx context.Context, a *model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	details, _ := json.Marshal(a.Details)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, action, bounty_id, details, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Action, a.BountyID, string(details), boolInt(a.Success), ts(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: log activity: %w", err)
	}
	return nil
}

// Activities implements BountyStore.
func (s *SQLite) Activities(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, bounty_id, details, success, created_at
		FROM activity_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var details, createdAt string
		var success int
		if err := rows.Scan(&a.ID, &a.Action, &a.BountyID, &details, &success, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan activity: %w", err)
		}
		json.Unmarshal([]byte(details), &a.Details)
		a.Success = success != 0
		a.CreatedAt = parseTS(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats implements Store.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(requests_total), 0), COALESCE(SUM(threats_blocked), 0)
		FROM agents`)
	if err := row.Scan(&st.Agents, &st.RequestsTotal, &st.ThreatsBlocked); err != nil {
		return st, fmt.Errorf("store: agent stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threat_signatures`).Scan(&st.ThreatSignatures); err != nil {
		return st, fmt.Errorf("store: signature stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bounties`).Scan(&st.TotalBounties); err != nil {
		return st, fmt.Errorf("store: bounty stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bounties WHERE status IN ('analyzing', 'working', 'pr_submitted')`).Scan(&st.ActiveBounties); err != nil {
		return st, fmt.Errorf("store: active bounty stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM earnings`).Scan(&st.TotalEarnings); err != nil {
		return st, fmt.Errorf("store: earnings stats: %w", err)
	}
	return st, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
