package bounty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultBaseURL is the public GitHub REST API root.
const defaultBaseURL = "https://api.github.com"

// apiVersion pins the GitHub REST API version header.
const apiVersion = "2022-11-28"

// DefaultLabels are searched when the configuration names none.
var DefaultLabels = []string{"bounty", "bug-bounty", "help wanted", "good first issue"}

// Issue is one issue returned by the GitHub search API, reduced to the
// fields the tracker uses.
type Issue struct {
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	Body          string  `json:"body"`
	HTMLURL       string  `json:"html_url"`
	RepositoryURL string  `json:"repository_url"`
	State         string  `json:"state"`
	Labels        []Label `json:"labels"`
}

// Label is one issue label.
type Label struct {
	Name string `json:"name"`
}

type searchResult struct {
	TotalCount int     `json:"total_count"`
	Items      []Issue `json:"items"`
}

type apiError struct {
	Message string `json:"message"`
}

// Client searches GitHub for bounty-labeled issues. An empty token is
// allowed; unauthenticated search is rate-limited harder by GitHub but
// otherwise works.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root. For tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a GitHub search client.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchIssues returns open issues carrying any of the given labels,
// newest first. An empty label list falls back to DefaultLabels.
func (c *Client) SearchIssues(ctx context.Context, labels []string, limit int) ([]Issue, error) {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	query := "is:issue is:open label:" + strings.Join(quoted, " OR label:")

	path := fmt.Sprintf("/search/issues?q=%s&sort=created&order=desc&per_page=%d",
		url.QueryEscape(query), limit)

	var result searchResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("bounty: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bounty: github request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("bounty: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("bounty: github api: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("bounty: github api: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("bounty: decode response: %w", err)
	}
	return nil
}
