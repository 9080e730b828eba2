// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package client is the HTTP client for the dataflow management API.

# Problem Statement

Every console operation is a REST call whose outcome decides what the operator
sees: a refreshed listing, a banner inside an open dialog, a snackbar, or a
full-screen error. Callers need one place that:

 1. Builds requests against a base URL with auth and a stable client id
 2. Turns non-2xx responses into a typed *APIError carrying the status
 3. Extracts a readable message from whatever body the server returned
 4. Traces and meters every call

# Solution

	┌──────────────────────────────────────────────────────────────┐
	│ Client.GetParameterProvider(ctx, id)                         │
	├──────────────────────────────────────────────────────────────┤
	│  rate.Limiter.Wait   ← optional, shared across calls         │
	│  telemetry.StartSpan ← "Client.GetParameterProvider"         │
	│  otelhttp.Transport  ← propagates trace context to server    │
	│  memguard.Enclave    ← bearer token opened per request       │
	│  gjson               ← message/error field on failures       │
	└──────────────────────────────────────────────────────────────┘

Concurrent identical listing loads (providers, types) are collapsed into one
request with singleflight.

# Usage

	c, err := client.New("http://localhost:8080/flowadmin-api",
	    client.WithToken(token),
	    client.WithRateLimit(20, 5),
	)
	providers, err := c.ListParameterProviders(ctx)
	if status, ok := client.StatusCode(err); ok && client.ShowErrorInContext(status) {
	    // show next to the operation
	}
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	tracerName = "flowadmin/client"

	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when WithUserAgent is not used.
	DefaultUserAgent = "flowadmin"

	maxResponseBytes = 16 << 20
)

// ErrInvalidBaseURL is returned by New for an unusable base URL.
var ErrInvalidBaseURL = errors.New("client: base URL must be absolute http or https")

// Client calls the management API. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     *memguard.Enclave
	limiter   *rate.Limiter
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
	metrics   *telemetry.Metrics
	clientID  string

	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is still
// wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.http = &cp
		}
	}
}

// WithToken sets a bearer token. The token is sealed in a memguard enclave and
// the caller's slice is wiped.
func WithToken(token []byte) Option {
	return func(c *Client) {
		if len(token) == 0 {
			return
		}
		c.token = memguard.NewEnclave(token)
	}
}

// WithRateLimit caps the request rate to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClientID fixes the client id sent with revisions. A random id is used otherwise.
func WithClientID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.clientID = id
		}
	}
}

// New creates a Client for baseURL.
//
// # Inputs
//
//   - baseURL: Absolute URL of the API root, e.g. "http://host:8080/flowadmin-api".
//   - opts: Functional options.
//
// # Outputs
//
//   - *Client: Ready to use.
//   - error: ErrInvalidBaseURL when baseURL is not absolute http(s).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{},
		logger:    slog.Default(),
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		clientID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = otelhttp.NewTransport(base)
	return c, nil
}

// ClientID is the id this client stamps on revisions it creates.
func (c *Client) ClientID() string {
	return c.clientID
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// stamp returns r carrying this client's id.
func (c *Client) stamp(r api.Revision) api.Revision {
	r.ClientID = c.clientID
	return r
}

// do performs one API call.
//
// # Description
//
// Marshals body as JSON when non-nil, sends the request, and decodes a 2xx
// body into out when out is non-nil. Non-2xx responses and transport failures
// become *APIError. route is the templated path used for span names and
// metric labels so ids do not explode cardinality.
func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, body, out any) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, err := c.roundTrip(ctx, method, path, query, body, out)
	c.metrics.RecordRequest(ctx, method, route, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Debug("api request failed",
			"method", method, "path", path, "status", status, "error", err)
		return err
	}
	telemetry.SetSpanOK(span)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	transportErr := func(err error) error {
		return &APIError{Method: method, Path: path, Message: err.Error(), Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, transportErr(err)
		}
	}

	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		buf, err := c.token.Open()
		if err != nil {
			return 0, fmt.Errorf("open token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+buf.String())
		buf.Destroy()
	}

	c.logger.Debug("api request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportErr(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, transportErr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
			Method:     method,
			Path:       path,
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// shared collapses concurrent identical loads into one request.
func shared[T any](c *Client, key string, fn func() (T, error)) (T, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("singleflight %s: unexpected %T", key, v)
	}
	return out, nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
