package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Verification is the outcome of asking the facilitator to confirm a
// transaction.
type Verification struct {
	Valid         bool    `json:"valid"`
	AmountPaid    float64 `json:"amount_paid,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Err           string  `json:"error,omitempty"`
}

// Verifier confirms payment proofs against an external facilitator.
//
// When the facilitator is unreachable the verifier applies an explicit
// policy: fail closed (default, the proof is rejected) or fail open
// (the claimed payment is accepted). Fail-open exists to keep legitimate
// callers working through a facilitator outage and is logged loudly; it
// is not a production posture.
type Verifier struct {
	baseURL  string
	client   *http.Client
	failOpen bool
	log      *zap.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithFailOpen switches the facilitator-unreachable policy to accept
// the claimed payment instead of rejecting it.
func WithFailOpen() VerifierOption {
	return func(v *Verifier) { v.failOpen = true }
}

// WithHTTPClient overrides the HTTP client. For tests.
func WithHTTPClient(c *http.Client) VerifierOption {
	return func(v *Verifier) { v.client = c }
}

// NewVerifier creates a Verifier for the given facilitator base URL.
func NewVerifier(baseURL string, log *zap.Logger, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	if v.log == nil {
		v.log = zap.NewNop()
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

type verifyRequest struct {
	Signature         string  `json:"signature"`
	ExpectedAmount    float64 `json:"expected_amount"`
	ExpectedRecipient string  `json:"expected_recipient"`
	Token             string  `json:"token"`
	Network           string  `json:"network"`
}

type verifyResponse struct {
	OK       bool    `json:"ok"`
	Verified bool    `json:"verified"`
	Amount   float64 `json:"amount"`
	Error    string  `json:"error"`
}

// Verify asks the facilitator to confirm the transaction signature
// covers the expected amount to the expected recipient.
func (v *Verifier) Verify(ctx context.Context, signature string, expectedAmount float64, expectedRecipient string) Verification {
	body, err := json.Marshal(verifyRequest{
		Signature:         signature,
		ExpectedAmount:    expectedAmount,
		ExpectedRecipient: expectedRecipient,
		Token:             Currency,
		Network:           Network,
	})
	if err != nil {
		return Verification{Err: fmt.Sprintf("encode verify request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return Verification{Err: fmt.Sprintf("build verify request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return v.unreachable(signature, expectedAmount, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var vr verifyResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return v.unreachable(signature, expectedAmount, fmt.Errorf("decode facilitator response: %w", err))
	}

	if vr.OK && vr.Verified {
		paid := vr.Amount
		if paid == 0 {
			paid = expectedAmount
		}
		return Verification{Valid: true, AmountPaid: paid, TransactionID: signature}
	}

	reason := vr.Error
	if reason == "" {
		reason = "payment verification failed"
	}
	return Verification{Err: reason}
}

// unreachable applies the configured outage policy.
func (v *Verifier) unreachable(signature string, expectedAmount float64, cause error) Verification {
	if v.failOpen {
		v.log.Warn("facilitator unreachable, accepting payment on fail-open policy",
			zap.Error(cause),
			zap.Float64("amount_usdc", expectedAmount))
		return Verification{Valid: true, AmountPaid: expectedAmount, TransactionID: signature}
	}
	v.log.Warn("facilitator unreachable, rejecting payment", zap.Error(cause))
	return Verification{Err: fmt.Sprintf("facilitator unreachable: %v", cause)}
}
