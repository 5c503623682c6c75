package payment

import (
	"errors"
	"strconv"
	"strings"
)

// HeaderName is the request header carrying the payment envelope.
const HeaderName = "X-Payment"

// Envelope is a parsed payment proof from the X-Payment header.
type Envelope struct {
	Valid     bool    `json:"valid"`
	Amount    float64 `json:"amount,omitempty"`
	Signature string  `json:"signature,omitempty"`
	Recipient string  `json:"recipient,omitempty"`
	Err       string  `json:"error,omitempty"`
}

// Header parse errors surfaced in Envelope.Err.
var (
	errNoHeader      = errors.New("no payment header provided")
	errBadScheme     = errors.New("invalid payment header format (must start with x402)")
	errMissingFields = errors.New("missing required payment fields (amount, tx/signature)")
)

// ParseHeader parses an x402 payment header of the form
//
//	x402 usdc/solana amount=0.001 tx=<signature> recipient=<wallet>
//
// The scheme tag is case-insensitive. Tokens are whitespace-delimited
// key=value pairs; amount and tx/signature are mandatory and amount
// must parse as a positive number.
func ParseHeader(raw string) Envelope {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Envelope{Err: errNoHeader.Error()}
	}
	if !strings.HasPrefix(strings.ToLower(raw), Scheme) {
		return Envelope{Err: errBadScheme.Error()}
	}

	var env Envelope
	for _, part := range strings.Fields(raw) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.ToLower(key) {
		case "amount":
			env.Amount, _ = strconv.ParseFloat(value, 64)
		case "tx", "signature":
			env.Signature = value
		case "recipient":
			env.Recipient = value
		}
	}

	if env.Amount <= 0 || env.Signature == "" {
		return Envelope{Err: errMissingFields.Error()}
	}

	env.Valid = true
	return env
}
