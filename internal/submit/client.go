package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethgrid/pester"

	"github.com/rshade/mesgrid/internal/config"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Doer is satisfied by *http.Client and *pester.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts GraphQL operations to a single endpoint.
type Client struct {
	endpoint string
	headers  map[string]string
	doer     Doer
	once     Doer
	retries  *pester.Client
	attempts int
	backoff  pester.BackoffStrategy
	logger   zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	backoff pester.BackoffStrategy
	logger  zerolog.Logger
	doer    Doer
}

// WithBackoff overrides the retry backoff strategy.
func WithBackoff(b pester.BackoffStrategy) ClientOption {
	return func(o *clientOptions) { o.backoff = b }
}

// WithClientLogger sets the logger used for request diagnostics.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// WithDoer replaces both the retrying and the single-attempt HTTP client.
func WithDoer(d Doer) ClientOption {
	return func(o *clientOptions) { o.doer = d }
}

// NewClient builds a client for cfg.Endpoint. Do retries connection errors
// and 5xx responses up to cfg.MaxRetries times; DoOnce retries only
// connection errors.
func NewClient(cfg config.BackendConfig, opts ...ClientOption) *Client {
	o := clientOptions{
		backoff: pester.ExponentialJitterBackoff,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		attempts: max(cfg.MaxRetries, 0) + 1,
		backoff:  o.backoff,
		logger:   o.logger,
	}

	if o.doer != nil {
		c.doer = o.doer
		c.once = o.doer
		return c
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	ec := pester.NewExtendedClient(hc)
	// pester counts attempts, not retries.
	ec.MaxRetries = c.attempts
	ec.Concurrency = 1
	ec.Backoff = o.backoff
	ec.KeepLog = true
	c.doer = ec
	c.once = hc
	c.retries = ec
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do posts one idempotent operation and returns the raw data member of the
// response. A non-empty errors array is returned as *GraphQLError.
func (c *Client) Do(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	return c.post(ctx, c.doer, operation, query, variables)
}

// DoOnce posts an operation that must not be applied twice. A request that
// reached the backend is never resent, so only dial failures are retried.
func (c *Client) DoOnce(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		var data json.RawMessage
		data, err = c.post(ctx, c.once, operation, query, variables)
		if err == nil || !isDialError(err) || attempt == c.attempts {
			return data, err
		}

		wait := c.backoff(attempt)
		c.logger.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("connection failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (c *Client) post(ctx context.Context, doer Doer, operation, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := doer.Do(req)
	if err != nil {
		if c.retries != nil && doer == Doer(c.retries) {
			c.logger.Debug().Str("retry_log", c.retries.LogString()).Msg("request attempts")
		}
		return nil, fmt.Errorf("posting %s to %s: %w", operation, c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", operation, err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration_ms", time.Since(start)).
		Msg("graphql response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var out graphqlResponse
	if err = json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", operation, err)
	}
	if len(out.Errors) > 0 {
		gqlErr := &GraphQLError{Operation: operation}
		for _, e := range out.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}
	return out.Data, nil
}
