package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/metatools/observe"
	"github.com/jonwraymond/metatools/resilience"
)

// Config configures a Client.
type Config struct {
	// Provider names the upstream in errors and logs.
	Provider string

	// BaseURL is the API root, e.g. https://api.feedly.com/v3.
	BaseURL string

	// Token is sent as "Authorization: Bearer <Token>".
	Token string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Executor wraps every request. Default: DefaultExecutor(Provider, Logger).
	Executor *resilience.Executor

	UserAgent string

	Logger observe.Logger
}

// Client calls one provider API.
type Client struct {
	cfg  Config
	base *url.URL
}

// New creates a Client. A missing token is reported per call, so a
// provider can be configured without credentials and still serve cached
// reads.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Executor == nil {
		cfg.Executor = DefaultExecutor(cfg.Provider, cfg.Logger)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "metatools/" + cfg.Provider
	}
	return &Client{cfg: cfg, base: base}, nil
}

// DefaultExecutor retries retryable failures three times with exponential
// backoff and opens a circuit after five consecutive failed calls. Do never
// retries methods other than GET, HEAD and OPTIONS.
func DefaultExecutor(provider string, logger observe.Logger) *resilience.Executor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	log := logger.With(observe.F("provider", provider))
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:         provider,
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
			IsFailure:    Retryable,
			OnStateChange: func(name string, from, to resilience.State) {
				log.Warn(context.Background(), "upstream circuit changed",
					observe.F("from", from.String()), observe.F("to", to.String()))
			},
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
			RetryIf:      Retryable,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				log.Warn(context.Background(), "retrying upstream call",
					observe.F("attempt", attempt), observe.F("delay_ms", delay.Milliseconds()), observe.F("error", err))
			},
		})),
		resilience.WithTimeout(20*time.Second),
	)
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.cfg.Provider
}

// Do sends a JSON request and decodes a JSON response into out. path is
// resolved against the base URL and may carry a query string. body is
// encoded as JSON when non-nil; out may be nil to discard the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.cfg.Token == "" {
		return fmt.Errorf("%w for %s", ErrMissingToken, c.cfg.Provider)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("upstream: encode %s request: %w", c.cfg.Provider, err)
		}
	}
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	if !idempotent(method) {
		ctx = resilience.WithoutRetry(ctx)
	}
	return c.cfg.Executor.Execute(ctx, func(ctx context.Context) error {
		return c.roundTrip(ctx, method, target, payload, out)
	})
}

// idempotent reports whether a failed request may be resent. Only reads
// qualify; a write that timed out may still have been applied upstream.
func idempotent(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Get is Do with GET and query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("upstream: invalid path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("upstream: path %q must be relative to the base url", path)
	}
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("upstream: build %s request: %w", c.cfg.Provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s request: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: c.cfg.Provider, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &DecodeError{Provider: c.cfg.Provider, Err: err}
	}
	return nil
}
