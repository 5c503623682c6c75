package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/model"
	"github.com/ppiankov/agentward/internal/payment"
	"github.com/ppiankov/agentward/internal/ratelimit"
	"github.com/ppiankov/agentward/internal/store"
)

// gateCredential resolves the bearer credential to an account.
func (g *Gateway) gateCredential(ctx context.Context, rc *reqContext) *Decision {
	if rc.call.APIKey == "" {
		return denyErr(model.CodeUnauthorized, "missing API key")
	}
	agent, err := g.store.AgentByAPIKey(ctx, rc.call.APIKey)
	if errors.Is(err, store.ErrNotFound) {
		return denyErr(model.CodeUnauthorized, "invalid API key")
	}
	if err != nil {
		g.log.Error("credential lookup failed", zap.Error(err))
		return denyErr(model.CodeInternalError, "account lookup failed")
	}
	rc.agent = agent
	return nil
}

// gateQuarantine rejects quarantined accounts before any other gate
// spends work on them.
func (g *Gateway) gateQuarantine(_ context.Context, rc *reqContext) *Decision {
	if rc.agent.Quarantined() {
		return denyErr(model.CodeQuarantined, "agent is quarantined")
	}
	return nil
}

// gateShape parses the body and requires a tool name or a forwarding
// target. Malformed JSON is bad_request, never internal_error.
func (g *Gateway) gateShape(_ context.Context, rc *reqContext) *Decision {
	if len(rc.call.Body) == 0 {
		return denyErr(model.CodeBadRequest, "empty request body")
	}
	if err := json.Unmarshal(rc.call.Body, &rc.req); err != nil {
		return denyErr(model.CodeBadRequest, "malformed JSON body")
	}
	if rc.req.Tool == "" && rc.req.TargetURL == "" {
		return denyErr(model.CodeBadRequest, "either tool or target_url is required")
	}

	// The scan payload is the declared data when present, otherwise
	// the whole call shape.
	var toScan any = rc.req
	if rc.req.Data != nil {
		toScan = rc.req.Data
	}
	raw, err := json.Marshal(toScan)
	if err != nil {
		return denyErr(model.CodeBadRequest, "unserializable payload")
	}
	rc.payload = string(raw)
	return nil
}

// gateRateLimit checks the tier-derived hourly ceiling. A denied check
// does not advance the window counter.
func (g *Gateway) gateRateLimit(ctx context.Context, rc *reqContext) *Decision {
	limits := ratelimit.LimitsFor(rc.agent.Tier)
	res, err := g.limiter.Check(ctx, rc.agent.ID, limits.RequestsPerHour)
	if err != nil {
		g.log.Error("rate limit check failed",
			zap.String("agent_id", rc.agent.ID),
			zap.Error(err))
		return denyErr(model.CodeInternalError, "rate limit check failed")
	}
	if !res.Allowed {
		d := denyErr(model.CodeRateLimited, "hourly rate limit exceeded")
		d.RateLimit = &res
		return d
	}
	return nil
}

// gatePayment meters the call. The first free-tier allotment each day
// passes untouched; beyond it a verified x402 proof is required. A
// verified payment credits the account before the chain continues and
// the credit stands even if a later gate denies.
func (g *Gateway) gatePayment(ctx context.Context, rc *reqContext) *Decision {
	req := payment.CheckRequired(rc.agent.RequestsToday, rc.agent.PricePerRequest, g.cfg.Wallet, g.cfg.FacilitatorURL)
	if !req.Required {
		return nil
	}

	env := payment.ParseHeader(rc.call.PaymentHeader)
	if !env.Valid {
		instr := payment.Generate402(req)
		d := denyErr(model.CodePaymentRequired, env.Err)
		d.Payment = &instr
		return d
	}

	ver := g.verifier.Verify(ctx, env.Signature, req.AmountUSDC, req.Recipient)
	if !ver.Valid {
		// A rejected proof still gets the retry instructions.
		instr := payment.Generate402(req)
		d := denyErr(model.CodePaymentInvalid, ver.Err)
		d.Payment = &instr
		return d
	}

	rc.delta.CreditsUSDC += ver.AmountPaid
	return nil
}

// gateInboundScan classifies the payload before anything leaves the
// perimeter. The first threat in scan order is the one surfaced.
func (g *Gateway) gateInboundScan(ctx context.Context, rc *reqContext) *Decision {
	scan := g.scanner.ScanForThreats(rc.payload)
	if scan.Safe {
		return nil
	}
	t := scan.First()
	g.recordThreat(ctx, rc, t)
	d := denyErr(model.CodeThreatBlocked, t.Description)
	d.Threat = t
	return d
}

// gateRedact strips embedded secrets from the payload. Never blocks;
// it only transforms the call and counts each stripped occurrence.
func (g *Gateway) gateRedact(_ context.Context, rc *reqContext) *Decision {
	res := g.scanner.ScanAndRedactSecrets(rc.payload)
	if len(res.SecretsFound) == 0 {
		return nil
	}

	rc.payload = res.Redacted
	rc.redactions = res.SecretsFound
	rc.delta.ThreatsBlocked += int64(len(res.SecretsFound))

	// Keep structured data structured when the redacted form still
	// parses; otherwise the payload travels on as opaque text.
	if rc.req.Data != nil {
		var parsed any
		if err := json.Unmarshal([]byte(res.Redacted), &parsed); err == nil {
			rc.req.Data = parsed
		} else {
			rc.req.Data = res.Redacted
		}
	}
	return nil
}

// gateForward performs the outbound leg when a target was declared,
// then re-scans the response. One attempt, bounded timeout.
func (g *Gateway) gateForward(ctx context.Context, rc *reqContext) *Decision {
	if rc.req.TargetURL == "" {
		return nil
	}

	fr, err := g.forward.Do(ctx, rc.req, rc.payload)
	if err != nil {
		g.log.Warn("outbound forward failed",
			zap.String("target", rc.req.TargetURL),
			zap.Error(err))
		return denyErr(model.CodeProxyError, "outbound request failed")
	}
	rc.forward = fr

	scan := g.scanner.ScanForThreats(fr.Body)
	if !scan.Safe {
		t := scan.First()
		g.recordThreat(ctx, rc, t)
		d := denyErr(model.CodeResponseThreat, t.Description)
		d.Threat = t
		return d
	}
	return nil
}

// recordThreat persists the signature to the shared feed and counts
// the block. Feed write failures are logged, not surfaced.
func (g *Gateway) recordThreat(ctx context.Context, rc *reqContext, t *model.Threat) {
	rc.delta.ThreatsBlocked++
	sig := model.ThreatSignature{
		SignatureHash: g.scanner.SignatureHash(*t),
		ThreatType:    t.Type,
		Pattern:       t.Pattern,
		Description:   t.Description,
		Severity:      t.Severity,
		SourceAgentID: rc.agent.ID,
	}
	if err := g.store.UpsertThreatSignature(ctx, sig); err != nil {
		g.log.Error("threat signature upsert failed",
			zap.String("hash", sig.SignatureHash),
			zap.Error(err))
	}
}
