package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/model"
	"github.com/ppiankov/agentward/internal/payment"
	"github.com/ppiankov/agentward/internal/store"
)

// maxProxyBody caps the inbound payload size.
const maxProxyBody = 1 << 20

func (s *Server) proxy(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": model.CodeBadRequest, "error": "unreadable body"})
		return
	}

	d := s.gw.Handle(c.Request.Context(), gateway.Call{
		APIKey:        apiKey(c),
		PaymentHeader: c.GetHeader(payment.HeaderName),
		Body:          body,
	})
	observeDecision(d)

	c.JSON(d.Code.HTTPStatus(), decisionEnvelope(d))
}

// decisionEnvelope shapes the JSON body for a terminal decision. Denials
// carry only what the caller needs to act on, never the raw payload.
func decisionEnvelope(d gateway.Decision) gin.H {
	resp := gin.H{
		"ok":         d.Allowed(),
		"code":       d.Code,
		"latency_ms": d.LatencyMS,
	}
	if d.Err != "" {
		resp["error"] = d.Err
	}

	switch d.Code {
	case model.CodeAllow:
		resp["request"] = d.Request
		if d.Forward != nil {
			resp["forward"] = d.Forward
		}
		if len(d.Redactions) > 0 {
			resp["redactions"] = d.Redactions
		}
	case model.CodeRateLimited:
		if d.RateLimit != nil {
			resp["limit"] = d.RateLimit.Limit
			resp["reset_at"] = d.RateLimit.ResetAt
		}
	case model.CodePaymentRequired, model.CodePaymentInvalid:
		if d.Payment != nil {
			resp["payment"] = d.Payment
		}
	case model.CodeThreatBlocked, model.CodeResponseThreat:
		if d.Threat != nil {
			resp["threat"] = gin.H{
				"type":        d.Threat.Type,
				"severity":    d.Threat.Severity,
				"description": d.Threat.Description,
			}
		}
	}
	return resp
}

type registerRequest struct {
	Name string `json:"agent_name"`
}

func (s *Server) registerAgent(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": model.CodeBadRequest, "error": "agent_name is required"})
		return
	}

	now := time.Now().UTC()
	agent := &model.Agent{
		ID:              uuid.NewString(),
		APIKey:          "aw_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:            strings.TrimSpace(req.Name),
		Status:          model.StatusActive,
		Tier:            model.TierFree,
		PricePerRequest: s.cfg.Registration.PriceAt(now),
		PriceLockedAt:   now,
		CreatedAt:       now,
	}
	if err := s.st.CreateAgent(c.Request.Context(), agent); err != nil {
		s.log.Error("agent registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": model.CodeInternalError, "error": "registration failed"})
		return
	}

	// The API key is returned exactly once, at registration.
	c.JSON(http.StatusCreated, gin.H{"ok": true, "agent": agent})
}

// authAgent resolves the request credential or writes the 401 envelope.
func (s *Server) authAgent(c *gin.Context) (*model.Agent, bool) {
	key := apiKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "code": model.CodeUnauthorized, "error": "missing API key"})
		return nil, false
	}
	agent, err := s.st.AgentByAPIKey(c.Request.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "code": model.CodeUnauthorized, "error": "invalid API key"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": model.CodeInternalError, "error": "account lookup failed"})
		return nil, false
	}
	return agent, true
}

func (s *Server) getAgent(c *gin.Context) {
	agent, ok := s.authAgent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "agent": agent.Redacted()})
}

// limitQuery parses ?limit with a default and a hard ceiling.
func limitQuery(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (s *Server) getEvents(c *gin.Context) {
	agent, ok := s.authAgent(c)
	if !ok {
		return
	}
	events, err := s.st.EventsForAgent(c.Request.Context(), agent.ID, limitQuery(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": model.CodeInternalError, "error": "event lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "events": events, "count": len(events)})
}

func (s *Server) getPayment(c *gin.Context) {
	info := gin.H{
		"scheme":                payment.Scheme,
		"currency":              payment.Currency,
		"network":               payment.Network,
		"free_tier_daily_limit": payment.FreeTierDailyLimit,
		"recipient":             s.cfg.Payment.Wallet,
		"facilitator":           s.cfg.Payment.FacilitatorURL,
	}

	// With a valid credential the response also carries the caller's
	// own metering state.
	if key := apiKey(c); key != "" {
		agent, err := s.st.AgentByAPIKey(c.Request.Context(), key)
		if err == nil {
			remaining := int64(payment.FreeTierDailyLimit) - agent.RequestsToday
			if remaining < 0 {
				remaining = 0
			}
			info["price_per_request"] = agent.PricePerRequest
			info["requests_today"] = agent.RequestsToday
			info["free_remaining"] = remaining
			info["payment_required"] = remaining == 0
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "payment": info})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.st.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": model.CodeInternalError, "error": "stats aggregation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": stats})
}

func (s *Server) getThreats(c *gin.Context) {
	sigs, err := s.st.ThreatSignatures(c.Request.Context(), limitQuery(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": model.CodeInternalError, "error": "threat feed lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "threats": sigs, "count": len(sigs)})
}
