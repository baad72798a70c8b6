package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"shiori/internal/services"
)

const userAgent = "Shiori/0.1"

// ClientOptions configures the shared source HTTP client.
type ClientOptions struct {
	// RatePerMinute bounds outbound requests with a token bucket.
	RatePerMinute int
	// Timeout applies per HTTP call, independent of the cycle deadline.
	Timeout time.Duration
	// MaxAttempts caps retries for transient failures. Minimum 1.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// HTTPClient overrides the underlying client (used in tests).
	HTTPClient *http.Client
}

// Client is a rate-limited HTTP client with bounded retry, shared by all
// collectors. Transient failures (timeouts, 429, 5xx) are retried with
// exponential backoff; other HTTP errors return immediately as permanent.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient builds a Client from options, applying conservative defaults for
// anything unset.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	perMinute := opts.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Client{
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burstFor(perMinute)),
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

func burstFor(perMinute int) int {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return burst
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, source, url string, out any) error {
	return c.doJSON(ctx, source, http.MethodGet, url, nil, "", out)
}

// PostJSON sends payload as a JSON body to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, source, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, source, "encode request", "", err)
	}
	return c.doJSON(ctx, source, http.MethodPost, url, body, "application/json", out)
}

// GetRaw fetches url and returns the raw response body.
func (c *Client) GetRaw(ctx context.Context, source, url string) ([]byte, error) {
	var raw []byte
	err := c.do(ctx, source, http.MethodGet, url, nil, "", func(body io.Reader) error {
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return readErr
		}
		raw = data
		return nil
	})
	return raw, err
}

func (c *Client) doJSON(ctx context.Context, source, method, url string, body []byte, contentType string, out any) error {
	return c.do(ctx, source, method, url, body, contentType, func(reader io.Reader) error {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(reader).Decode(out); err != nil {
			return services.Wrap(services.ErrPermanent, source, "decode response", "malformed payload", err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, source, method, url string, body []byte, contentType string, consume func(io.Reader) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepWithContext(ctx, c.backoffDelay(attempt-1)); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.attempt(ctx, source, method, url, body, contentType, consume)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !services.IsRetriable(err) {
			return err
		}
		lastErr = err
	}
	return services.Wrap(services.ErrTransient, source, "fetch",
		fmt.Sprintf("retries exhausted after %d attempts", c.maxAttempts), lastErr)
}

func (c *Client) attempt(ctx context.Context, source, method, url string, body []byte, contentType string, consume func(io.Reader) error) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, source, "build request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, source, "request", url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return consume(resp.Body)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, source, "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrPermanent, source, "request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}

func (c *Client) backoffDelay(retries int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < retries; i++ {
		delay *= 2
		if delay > 30*time.Second {
			return 30 * time.Second
		}
	}
	return delay
}

// sleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
