package httpclient

import (
	"context"
	"net/url"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	// RequestURL is the final URL sent on the wire, query string included.
	RequestURL() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string) (Response, error)
}

// Sender delivers a request body with an arbitrary method.
type Sender interface {
	Send(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (Response, error)
}
