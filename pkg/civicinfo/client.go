// Package civicinfo is a thin client for the Civic Information REST API.
//
// Every call performs exactly one GET and hands back the status code and raw
// body. Non-2xx answers are ordinary responses, not errors; only transport
// failures are returned as errors.
package civicinfo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/civicinfo-lookup/pkg/httpclient"
)

// DefaultBaseURL is the production endpoint of the Civic Information API.
const DefaultBaseURL = "https://www.googleapis.com/civicinfo/v2/"

// Resource names appended to the base URL.
const (
	ResourceElections = "elections"
	ResourceDivisions = "divisions"
)

const (
	paramKey   = "key"
	paramQuery = "query"
)

// ErrMissingAPIKey is returned by New when no API key is supplied.
var ErrMissingAPIKey = errors.New("civicinfo: api key is required")

// Logger is the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, interface{}) {}

// Client issues lookups against the Civic Information API. It is safe for
// concurrent use and immutable after New returns.
type Client struct {
	key     string
	baseURL string
	timeout time.Duration
	http    httpclient.Client
	log     Logger
}

// Option customises a Client at construction time.
type Option func(*Client)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default transport.
// It has no effect when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client for the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		key:     apiKey,
		baseURL: DefaultBaseURL,
		timeout: httpclient.DefaultTimeout,
		log:     nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("civicinfo: parse base url: %w", err)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout)
	}
	return c, nil
}

// ListElections returns the elections currently known to the service.
func (c *Client) ListElections(ctx context.Context) (*Response, error) {
	return c.get(ctx, ResourceElections, nil)
}

// SearchDivisions searches administrative divisions by free-text query.
func (c *Client) SearchDivisions(ctx context.Context, query string) (*Response, error) {
	return c.get(ctx, ResourceDivisions, url.Values{paramQuery: {query}})
}

// get performs a single GET for resource. params is copied; the API key is
// always set exactly once and wins over any caller supplied "key".
func (c *Client) get(ctx context.Context, resource string, params url.Values) (*Response, error) {
	if c == nil || c.http == nil {
		return nil, errors.New("civicinfo: client is not initialized")
	}

	query := make(url.Values, len(params)+1)
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}
	query.Set(paramKey, c.key)

	endpoint := resourceURL(c.baseURL, resource)
	resp, err := c.http.Get(ctx, endpoint, query, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("civicinfo: get %s: %w", resource, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		URL:        redactKey(resp.RequestURL()),
	}
	c.log.DebugObj("civicinfo request completed", "civicinfo_request", map[string]any{
		"resource":   resource,
		"status":     out.StatusCode,
		"url":        out.URL,
		"body_bytes": len(out.Body),
	})
	return out, nil
}

func resourceURL(base, resource string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(resource, "/")
}

// redactKey masks the key query parameter so URLs can be logged or printed.
func redactKey(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	if q.Has(paramKey) {
		q.Set(paramKey, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
