// Package gateway runs every proxied tool call through a fixed chain
// of gates: credential resolution, quarantine, request shape, rate
// limit, payment, inbound threat scan, secret redaction, optional
// forward, outbound threat scan, accounting. Each gate either passes
// the call on with updated context or produces the terminal Decision.
//
// Side effects are cumulative with the gate order: a denial at gate N
// applies no side effects of later gates, and side effects already
// applied by earlier gates (a verified payment credit, a redaction
// counter bump) are not rolled back.
package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/audit"
	"github.com/ppiankov/agentward/internal/inspect"
	"github.com/ppiankov/agentward/internal/model"
	"github.com/ppiankov/agentward/internal/payment"
	"github.com/ppiankov/agentward/internal/ratelimit"
	"github.com/ppiankov/agentward/internal/store"
)

// Config holds gateway policy knobs.
type Config struct {
	// Wallet receives x402 payments.
	Wallet string

	// FacilitatorURL is advertised in payment instructions.
	FacilitatorURL string

	// CountResponseThreats makes a response_threat denial consume a
	// billing unit (the outbound leg did execute). Off by default:
	// the caller never received a usable response.
	CountResponseThreats bool

	// ForwardTimeout bounds the outbound leg; zero selects the default.
	ForwardTimeout time.Duration
}

// Gateway is the request firewall pipeline.
type Gateway struct {
	cfg      Config
	store    store.Store
	limiter  *ratelimit.Limiter
	verifier *payment.Verifier
	scanner  inspect.Scanner
	forward  *Forwarder
	auditLog *audit.Log // optional local hash-chained log
	log      *zap.Logger
}

// New assembles a gateway from its collaborators. auditLog may be nil
// to disable the local chained log; store events are always written.
func New(cfg Config, st store.Store, limiter *ratelimit.Limiter, verifier *payment.Verifier, scanner inspect.Scanner, auditLog *audit.Log, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		cfg:      cfg,
		store:    st,
		limiter:  limiter,
		verifier: verifier,
		scanner:  scanner,
		forward:  NewForwarder(cfg.ForwardTimeout),
		auditLog: auditLog,
		log:      log,
	}
}

// Call is one raw inbound request before any gate has run.
type Call struct {
	APIKey        string
	PaymentHeader string
	Body          []byte
}

// reqContext is the mutable state threaded through the gate chain.
type reqContext struct {
	call       Call
	agent      *model.Agent
	req        model.ProxyRequest
	payload    string // serialized (possibly redacted) payload
	redactions []model.SecretMatch
	forward    *ForwardResult

	// delta accumulates counter updates applied once per call. Credits
	// and threat counters added by earlier gates survive later denials.
	delta store.CounterDelta
}

// gate is one named step of the chain. A nil return continues; a
// non-nil Decision is terminal.
type gate struct {
	name string
	run  func(ctx context.Context, rc *reqContext) *Decision
}

func (g *Gateway) gates() []gate {
	return []gate{
		{"credential", g.gateCredential},
		{"quarantine", g.gateQuarantine},
		{"shape", g.gateShape},
		{"ratelimit", g.gateRateLimit},
		{"payment", g.gatePayment},
		{"inbound_scan", g.gateInboundScan},
		{"redact", g.gateRedact},
		{"forward", g.gateForward},
	}
}

// Handle runs one call through the gate chain and returns its Decision.
// It never returns an error; unclassified failures become
// internal_error.
func (g *Gateway) Handle(ctx context.Context, call Call) Decision {
	start := time.Now()
	rc := &reqContext{call: call}

	var decision *Decision
	for _, gt := range g.gates() {
		if d := gt.run(ctx, rc); d != nil {
			decision = d
			g.log.Debug("gate denied",
				zap.String("gate", gt.name),
				zap.String("code", string(d.Code)))
			break
		}
	}
	if decision == nil {
		decision = g.allow(rc)
	}

	decision.LatencyMS = time.Since(start).Milliseconds()
	g.settle(ctx, rc, decision)

	if rc.agent != nil {
		redacted := rc.agent.Redacted()
		decision.Agent = &redacted
	}
	return *decision
}

// allow builds the terminal allow decision once every gate has passed.
func (g *Gateway) allow(rc *reqContext) *Decision {
	rc.delta.RequestsToday++
	rc.delta.RequestsTotal++
	req := rc.req
	return &Decision{
		Code:       model.CodeAllow,
		Request:    &req,
		Forward:    rc.forward,
		Redactions: rc.redactions,
	}
}

// settle applies the accumulated counter delta and emits audit records
// for the terminal decision. Audit failures are logged, never surfaced:
// the decision already stands.
func (g *Gateway) settle(ctx context.Context, rc *reqContext, d *Decision) {
	if d.Code == model.CodeResponseThreat && g.cfg.CountResponseThreats {
		rc.delta.RequestsToday++
		rc.delta.RequestsTotal++
	}

	if rc.agent == nil {
		g.appendChain(rc, d)
		return
	}

	if !rc.delta.Zero() {
		if err := g.store.IncrementCounters(ctx, rc.agent.ID, rc.delta); err != nil {
			g.log.Error("counter update failed",
				zap.String("agent_id", rc.agent.ID),
				zap.Error(err))
		}
	}

	for _, ev := range g.events(rc, d) {
		if err := g.store.AppendEvent(ctx, ev); err != nil {
			g.log.Error("audit event append failed",
				zap.String("agent_id", rc.agent.ID),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err))
		}
	}
	g.appendChain(rc, d)
}

// events maps a terminal decision to its audit rows: exactly one for
// the decision itself, plus one key_redacted row when secrets were
// stripped on the way to an allow.
func (g *Gateway) events(rc *reqContext, d *Decision) []model.Event {
	terminal := model.Event{
		AgentID:   rc.agent.ID,
		ToolName:  rc.req.Target(),
		Decision:  model.DecisionBlock,
		LatencyMS: d.LatencyMS,
	}

	switch d.Code {
	case model.CodeAllow:
		terminal.Type = model.EventToolCall
		terminal.Decision = model.DecisionAllow
	case model.CodeRateLimited:
		terminal.Type = model.EventRateLimited
	case model.CodePaymentRequired, model.CodePaymentInvalid:
		terminal.Type = model.EventPaymentDenied
	case model.CodeThreatBlocked, model.CodeResponseThreat:
		terminal.Type = model.EventThreatBlocked
		terminal.ThreatDetected = true
		terminal.RequestData = truncatePayload(rc.payload)
		if d.Threat != nil {
			terminal.ThreatType = d.Threat.Type
		}
	default:
		terminal.Type = model.EventToolCall
	}

	events := []model.Event{}
	if len(rc.redactions) > 0 {
		events = append(events, model.Event{
			AgentID:   rc.agent.ID,
			Type:      model.EventKeyRedacted,
			ToolName:  rc.req.Target(),
			Decision:  model.DecisionRedact,
			LatencyMS: d.LatencyMS,
		})
		if d.Code == model.CodeAllow {
			terminal.Decision = model.DecisionRedact
		}
	}
	return append(events, terminal)
}

// maxEventPayload bounds the request payload kept on a threat event row.
const maxEventPayload = 500

// truncatePayload keeps the leading slice of the scanned payload for
// the event record.
func truncatePayload(payload string) string {
	if len(payload) > maxEventPayload {
		return payload[:maxEventPayload]
	}
	return payload
}

// appendChain writes the terminal decision to the local hash-chained
// log when one is configured.
func (g *Gateway) appendChain(rc *reqContext, d *Decision) {
	if g.auditLog == nil {
		return
	}
	entry := audit.Entry{
		Tool:       rc.req.Target(),
		Action:     rc.req.Action,
		Code:       string(d.Code),
		Decision:   string(model.DecisionBlock),
		LatencyMS:  d.LatencyMS,
		AmountUSDC: rc.delta.CreditsUSDC,
	}
	if rc.agent != nil {
		entry.AgentID = rc.agent.ID
	}
	switch d.Code {
	case model.CodeAllow:
		entry.EventType = string(model.EventToolCall)
		entry.Decision = string(model.DecisionAllow)
		if len(rc.redactions) > 0 {
			entry.Decision = string(model.DecisionRedact)
		}
	case model.CodeRateLimited:
		entry.EventType = string(model.EventRateLimited)
	case model.CodePaymentRequired, model.CodePaymentInvalid:
		entry.EventType = string(model.EventPaymentDenied)
	case model.CodeThreatBlocked, model.CodeResponseThreat:
		entry.EventType = string(model.EventThreatBlocked)
		if d.Threat != nil {
			entry.ThreatType = string(d.Threat.Type)
		}
	default:
		entry.EventType = string(model.EventToolCall)
	}
	if err := g.auditLog.Record(entry); err != nil {
		g.log.Error("audit chain append failed", zap.Error(err))
	}
}
