// Package supabase talks to a hosted Supabase project: PostgREST for the
// certificates table and GoTrue for admin sessions.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"certportal/internal/domain"
)

type Client struct {
	restURL string
	authURL string
	anonKey string
	table   string
	http    *http.Client
	log     *zap.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient sets the timeout and transport of every backend call. The
// default timeout is 10s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTable(table string) Option {
	return func(c *Client) {
		if table != "" {
			c.table = table
		}
	}
}

func New(baseURL, anonKey string, log *zap.Logger, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		restURL: base + "/rest/v1",
		authURL: base + "/auth/v1",
		anonKey: anonKey,
		table:   "certificates",
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
		tracer:  otel.Tracer("certportal/supabase"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rest returns a PostgREST client for one call. Clients are not shared so
// the bearer token of one request never leaks into another.
func (c *Client) rest(ctx context.Context) (*postgrest.Client, error) {
	rc := postgrest.NewClient(c.restURL, "", map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.bearer(ctx),
	})
	if rc.ClientError != nil {
		return nil, fmt.Errorf("supabase: rest client: %w", rc.ClientError)
	}
	return rc, nil
}

// auth returns a GoTrue client for one call, bound to ctx, and the transport
// recording the status of its response.
func (c *Client) auth(ctx context.Context, token string) (gotrue.Client, *callTransport) {
	rt := &callTransport{ctx: ctx, base: c.http.Transport}
	gc := gotrue.New("", c.anonKey).
		WithCustomGoTrueURL(c.authURL).
		WithClient(http.Client{Transport: rt, Timeout: c.http.Timeout})
	if token != "" {
		gc = gc.WithToken(token)
	}
	return gc, rt
}

// withTimeout bounds PostgREST calls, which do not go through c.http.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.http.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.http.Timeout)
}

// callTransport carries the caller's context into GoTrue requests and keeps
// the last response status for error mapping.
type callTransport struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req.Clone(t.ctx))
	if resp != nil {
		t.status = resp.StatusCode
	}
	return resp, err
}

// bearer is the signed-in admin's access token, else the anon key.
func (c *Client) bearer(ctx context.Context) string {
	if s := domain.SessionFromContext(ctx); s != nil && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.anonKey
}

func (c *Client) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "supabase "+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "supabase call failed")
	}
	span.End()
}

// Health checks that the REST endpoint answers.
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rc, err := c.rest(ctx)
	if err != nil {
		return err
	}
	_, _, err = rc.From(c.table).Select("id", "", false).Limit(1, "").ExecuteWithContext(ctx)
	return err
}
