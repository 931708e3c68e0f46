// Package fetch implements the bulk token-list transport.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-token-screener/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultLimit       = 100
)

// Params parameterize one bulk fetch. SortBy/Order/Period are forwarded to
// the server for server-side sorting; Limit caps the response size.
type Params struct {
	Limit  int
	SortBy string
	Order  string
	Period string
}

// Client fetches token lists over HTTP.
type Client struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new bulk-fetch client for the given endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTokens retrieves a sorted token list. The response envelope comes in
// two historical shapes; both are accepted. A transport or parse failure is
// returned to the caller, which substitutes an empty snapshot and keeps the
// reconciliation loop running.
func (c *Client) FetchTokens(ctx context.Context, p Params) ([]*domain.Token, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	if p.Period != "" {
		q.Set("period", p.Period)
	}

	reqURL := c.baseURL + "?" + q.Encode()

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		tokens, err := c.fetchOnce(ctx, reqURL)
		if err == nil {
			return tokens, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch tokens after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) ([]*domain.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return decodeTokenList(body)
}

// decodeTokenList unwraps either envelope shape to the token array.
func decodeTokenList(body []byte) ([]*domain.Token, error) {
	// Current shape: {"tokens": [...]}
	var flat flatEnvelope
	if err := json.Unmarshal(body, &flat); err == nil && flat.Tokens != nil {
		return flat.Tokens, nil
	}

	// Legacy shape: {"data": {"tokens": [...]}}
	var nested nestedEnvelope
	if err := json.Unmarshal(body, &nested); err == nil && nested.Data.Tokens != nil {
		return nested.Data.Tokens, nil
	}

	// Bare array.
	var tokens []*domain.Token
	if err := json.Unmarshal(body, &tokens); err == nil && tokens != nil {
		return tokens, nil
	}

	// Unknown envelope: fall back to the first array-valued field.
	if raw, ok := firstArrayField(body); ok {
		if err := json.Unmarshal(raw, &tokens); err == nil {
			return tokens, nil
		}
	}

	return nil, fmt.Errorf("unrecognized response envelope")
}

func firstArrayField(body []byte) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, false
	}
	for _, v := range obj {
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil && arr != nil {
			return v, true
		}
	}
	return nil, false
}

// Response envelope shapes.

type flatEnvelope struct {
	Tokens []*domain.Token `json:"tokens"`
}

type nestedEnvelope struct {
	Data struct {
		Tokens []*domain.Token `json:"tokens"`
	} `json:"data"`
}
