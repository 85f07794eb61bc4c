package rest

// client.go = HTTP client core for the back-office API.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the back-office REST API. Every call is context-bound,
// bearer-authenticated and passes through a client-side rate limiter so a
// burst of console commands cannot hammer the backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit overrides the default request throttle.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// constructor for the API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken drops the session token (logout).
func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// errorEnvelope is the backend's rejection body: {"error": "reason"}.
type errorEnvelope struct {
	Error string `json:"error"`
}

// do performs one JSON request/response cycle. Non-2xx responses become an
// *APIError carrying whatever reason the backend supplied; transport and
// decode failures come back as plain errors, which callers treat as
// connectivity failures.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // Ensure the response body is closed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		// a body that does not decode leaves Message empty on purpose:
		// no application message means connectivity-class failure
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Paginated is the list envelope the back-office API wraps collections in.
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListParams is the common pagination/filter query surface.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

func (p ListParams) query() string {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size < 1 {
		size = 20
	}
	q := fmt.Sprintf("?page=%d&page_size=%d", page, size)
	if p.Search != "" {
		q += "&search=" + url.QueryEscape(p.Search)
	}
	return q
}
