// Package payment implements the x402-style pay-per-call metering
// protocol: free-tier accounting, header-encoded payment proofs, and
// verification through an external facilitator.
package payment

// FreeTierDailyLimit is the number of calls per day exempt from
// payment regardless of tier or price-per-request.
const FreeTierDailyLimit = 1000

// Protocol constants for the payment envelope.
const (
	Scheme   = "x402"
	Currency = "USDC"
	Network  = "solana"
)

// Requirement describes whether payment is owed for the current call.
// Derived purely from the daily counter and the agent's locked price;
// never persisted.
type Requirement struct {
	Required    bool    `json:"required"`
	AmountUSDC  float64 `json:"amount_usdc"`
	Recipient   string  `json:"recipient"`
	Scheme      string  `json:"scheme"`
	Network     string  `json:"network"`
	Facilitator string  `json:"facilitator"`
}

// CheckRequired computes the payment requirement for a call. The first
// FreeTierDailyLimit calls per day are free; beyond that the locked
// price-per-request is owed.
func CheckRequired(requestsToday int64, pricePerRequest float64, recipient, facilitator string) Requirement {
	req := Requirement{
		Recipient:   recipient,
		Scheme:      Scheme,
		Network:     Network,
		Facilitator: facilitator,
	}
	if requestsToday < FreeTierDailyLimit {
		return req
	}
	req.Required = true
	req.AmountUSDC = pricePerRequest
	return req
}
