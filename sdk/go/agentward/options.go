package agentward

import (
	"net/http"
	"time"
)

// Option configures a Client at creation time.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// CallOption configures a single Proxy call.
type CallOption func(*callConfig)

type callConfig struct {
	paymentHeader string
}

// WithPayment attaches an x402 payment header to the call. Build the
// value with PaymentHeader.
func WithPayment(header string) CallOption {
	return func(cc *callConfig) { cc.paymentHeader = header }
}
