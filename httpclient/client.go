// Package httpclient posts JSON payloads to notification endpoints with
// retries for transient failures.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by New for zero config fields.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryWait  = 500 * time.Millisecond
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Config configures a Client.
type Config struct {
	// Client is the underlying transport. Defaults to one with DefaultTimeout.
	Client *http.Client

	// Service names the receiver in errors.
	Service string

	// MaxRetries is the total number of attempts.
	MaxRetries int

	// RetryWait is the initial backoff, doubled after every attempt.
	RetryWait time.Duration

	// Headers are set on every request.
	Headers map[string]string
}

// Client delivers JSON payloads.
type Client struct {
	client     *http.Client
	service    string
	maxRetries int
	retryWait  time.Duration
	headers    map[string]string
}

// New creates a Client.
func New(cfg Config) *Client {
	c := &Client{
		client:     cfg.Client,
		service:    cfg.Service,
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		headers:    cfg.Headers,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.service == "" {
		c.service = "endpoint"
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryWait <= 0 {
		c.retryWait = DefaultRetryWait
	}
	return c
}

// PostJSON marshals body and posts it to url. Network errors, 429 and 5xx
// responses are retried with exponential backoff, honouring Retry-After.
func (c *Client) PostJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", c.service, err)
	}

	var lastErr error
	for attempt := range c.maxRetries {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		wait := c.retryWait * time.Duration(1<<attempt)
		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%s request failed: %w", c.service, err)
		case resp.StatusCode < 400:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		default:
			lastErr = c.parseError(resp)
			if ra := retryAfter(resp); ra > 0 {
				wait = ra
			}
			resp.Body.Close()
			if !IsRetryable(lastErr) {
				return lastErr
			}
		}

		if attempt == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		Service:    c.service,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}

	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
	} else {
		// Slack answers with plain text such as "invalid_payload".
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
