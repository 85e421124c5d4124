// Package search implements the paginated message search client.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/linkerlin/mentiondigest/internal/metrics"
	"github.com/linkerlin/mentiondigest/internal/types"
)

const (
	// PageSize is the number of matches requested per page.
	PageSize = 100
	// MaxPages caps how many pages one search may request.
	MaxPages = 5
)

// APIError is a response with ok=false.
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return "search api error: " + e.Code
}

// InvalidAuth reports whether the credential was rejected.
func (e *APIError) InvalidAuth() bool {
	switch e.Code {
	case "invalid_auth", "not_authed", "token_expired", "token_revoked", "account_inactive":
		return true
	}
	return false
}

// Result is the outcome of one paginated search. Matches holds everything
// accumulated before pagination stopped; Err is set only when it stopped
// because a request failed.
type Result struct {
	Matches    []types.MessageMatch
	Pages      int // pages successfully fetched
	TotalCount int // as reported by the API
	Capped     bool
	Err        error
}

// Failed reports whether pagination ended on an error.
func (r Result) Failed() bool { return r.Err != nil }

// Client queries the search API with a bearer credential.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestsPerMinute paces page requests. Zero or less disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// NewClient creates a search client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search requests pages of matches for query until the API reports no more
// pages, a request fails, or MaxPages pages have been fetched.
func (c *Client) Search(ctx context.Context, credential, query string) Result {
	slog.Info("searching messages", "query", query)

	var res Result
	for page := 1; ; page++ {
		body, err := c.fetchPage(ctx, credential, query, page)
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("transport_error").Inc()
			slog.Error("search request failed", "page", page, "err", err)
			res.Err = err
			return res
		}
		if !body.OK {
			apiErr := &APIError{Code: body.Error}
			if apiErr.InvalidAuth() {
				metrics.SearchRequestsTotal.WithLabelValues("invalid_auth").Inc()
				slog.Error("search credential is invalid or expired", "page", page, "code", body.Error)
			} else {
				metrics.SearchRequestsTotal.WithLabelValues("api_error").Inc()
				slog.Error("search api returned error", "page", page, "code", body.Error)
			}
			res.Err = apiErr
			return res
		}
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

		matches := body.narrow()
		metrics.SearchMatchesTotal.Add(float64(len(matches)))
		res.Matches = append(res.Matches, matches...)
		res.Pages = page

		var pageCount int
		if body.Messages != nil {
			pageCount = body.Messages.Pagination.PageCount
			res.TotalCount = body.Messages.Pagination.TotalCount
		}
		slog.Info("search page fetched", "page", page, "page_count", pageCount, "matches", len(matches), "total_count", res.TotalCount)
		if page == 1 && len(matches) > 0 {
			first := matches[0]
			slog.Info("first match", "channel_id", first.ChannelID, "channel_name", first.ChannelName,
				"text", truncate(first.Text, 80), "ts", first.Timestamp, "user", first.Username, "permalink", first.Permalink)
		}

		if page >= pageCount {
			break
		}
		if page >= MaxPages {
			metrics.SearchCappedTotal.Inc()
			slog.Warn("search page cap reached, remaining pages skipped", "max_pages", MaxPages, "page_count", pageCount)
			res.Capped = true
			break
		}
	}

	slog.Info("search complete", "matches", len(res.Matches), "pages", res.Pages)
	return res
}

func (c *Client) fetchPage(ctx context.Context, credential, query string, page int) (*searchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("count", strconv.Itoa(PageSize))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &body, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
