// Package transport provides the cancellable HTTP request primitive used by
// the completion client: API key headers, W3C trace propagation and a single
// coordinated token refresh on 401 responses.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a whole request, body included. Completions from
	// reasoning models can be slow.
	DefaultTimeout = 5 * time.Minute

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "folio"

	// HeaderAPIKey carries the raw API key alongside the bearer token.
	HeaderAPIKey = "X-ML-API-Key"

	refreshKey = "refresh"
)

// Doer issues a single HTTP request. *http.Client and *Transport satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies API tokens and refreshes them after the upstream
// rejects one with 401 Unauthorized.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Config configures a Transport.
type Config struct {
	// Timeout is the overall request timeout (defaults to DefaultTimeout).
	Timeout time.Duration

	// UserAgent is sent on every request (defaults to DefaultUserAgent).
	UserAgent string

	// APIKey is a static credential. Ignored when TokenSource is set.
	APIKey string

	// TokenSource is an optional refreshable credential.
	TokenSource TokenSource

	// Client overrides the underlying HTTP client. Its Timeout is left as is.
	Client *http.Client
}

// Transport is a Doer decorating requests with credentials and trace context.
type Transport struct {
	client    *http.Client
	userAgent string
	apiKey    string
	tokens    TokenSource
	refresh   singleflight.Group
}

// New creates a Transport from c.
func New(c Config) *Transport {
	client := c.Client
	if client == nil {
		timeout := c.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Transport{
		client:    client,
		userAgent: userAgent,
		apiKey:    c.APIKey,
		tokens:    c.TokenSource,
	}
}

// Do sends req. A 401 response triggers at most one token refresh, shared by
// every request that is concurrently waiting on it, followed by one replay.
// Requests whose body cannot be rewound are not replayed.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving api token: %w", err)
	}

	out := req.Clone(ctx)
	t.decorate(ctx, out, token)

	resp, err := t.client.Do(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || t.tokens == nil || !replayable(req) {
		return resp, nil
	}

	v, err, _ := t.refresh.Do(refreshKey, func() (any, error) {
		return t.tokens.Refresh(ctx)
	})
	if err != nil {
		// Surface the original 401 rather than the refresh failure.
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = body
	}
	t.decorate(ctx, retry, v.(string))

	return t.client.Do(retry)
}

func (t *Transport) token(ctx context.Context) (string, error) {
	if t.tokens == nil {
		return t.apiKey, nil
	}
	return t.tokens.Token(ctx)
}

func (t *Transport) decorate(ctx context.Context, req *http.Request, token string) {
	req.Header.Set("User-Agent", t.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(HeaderAPIKey, token)
	}
	injectTraceparent(ctx, req)
}

// replayable reports whether req can be sent a second time.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func injectTraceparent(ctx context.Context, req *http.Request) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return
	}
	req.Header.Set("Traceparent", fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), sc.TraceFlags()))
}
