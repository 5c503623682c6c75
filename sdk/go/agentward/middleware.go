package agentward

import "context"

// ToolFunc is the function signature that Wrap guards. The request
// passed to the wrapped function is the firewall's view of the call:
// secrets the server redacted are already replaced with placeholders.
type ToolFunc func(ctx context.Context, req ProxyRequest) (any, error)

// Wrap returns a ToolFunc that routes the call through the firewall
// before invoking fn. Denied calls return a *BlockedError without
// calling fn. Allowed calls invoke fn with the redacted request.
func (c *Client) Wrap(fn ToolFunc) ToolFunc {
	return func(ctx context.Context, req ProxyRequest) (any, error) {
		resp, err := c.Proxy(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Request != nil {
			req = *resp.Request
		}
		return fn(ctx, req)
	}
}
