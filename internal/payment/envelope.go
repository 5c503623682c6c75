package payment

import "fmt"

// Instructions is the machine-readable payment block attached to a 402
// response. It tells the caller exactly how to construct a valid
// X-Payment header for the retry.
type Instructions struct {
	Scheme       string   `json:"scheme"`
	Amount       float64  `json:"amount"`
	Currency     string   `json:"currency"`
	Network      string   `json:"network"`
	Recipient    string   `json:"recipient"`
	Facilitator  string   `json:"facilitator"`
	HeaderFormat string   `json:"header_format"`
	Steps        []string `json:"instructions"`
}

// Generate402 builds the payment-required envelope for a requirement.
// The header format it advertises parses back through ParseHeader once
// amount and tx are substituted.
func Generate402(req Requirement) Instructions {
	return Instructions{
		Scheme:      Scheme,
		Amount:      req.AmountUSDC,
		Currency:    Currency,
		Network:     Network,
		Recipient:   req.Recipient,
		Facilitator: req.Facilitator,
		HeaderFormat: fmt.Sprintf("%s: %s usdc/%s amount=%g tx=<transaction_signature> recipient=%s",
			HeaderName, Scheme, Network, req.AmountUSDC, req.Recipient),
		Steps: []string{
			fmt.Sprintf("1. Send %g %s to %s on %s", req.AmountUSDC, Currency, req.Recipient, Network),
			"2. Include the transaction signature in your request header",
			fmt.Sprintf("3. Retry your request with the %s header", HeaderName),
		},
	}
}
