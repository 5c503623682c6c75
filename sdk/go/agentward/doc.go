// Package agentward is the Go client for the agentward request
// firewall. It submits tool calls to a running agentward server,
// surfaces denials as typed errors, and builds x402 payment headers
// for retries past the free tier.
//
// Usage:
//
//	aw := agentward.New("http://localhost:8420", apiKey)
//	resp, err := aw.Proxy(ctx, agentward.ProxyRequest{
//	    Tool: "web_search",
//	    Data: map[string]any{"q": "golang"},
//	})
//	var blocked *agentward.BlockedError
//	if errors.As(err, &blocked) && blocked.Code == agentward.CodePaymentRequired {
//	    header := agentward.PaymentHeader(blocked.Payment.Amount, txSignature, blocked.Payment.Recipient)
//	    resp, err = aw.Proxy(ctx, req, agentward.WithPayment(header))
//	}
//
// External users import github.com/ppiankov/agentward/sdk/go/agentward.
package agentward
