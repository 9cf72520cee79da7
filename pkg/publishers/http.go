package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
	"github.com/samvad-hq/civicinfo-lookup/pkg/httpclient"
)

// maxErrorSnippet bounds how much of a rejected webhook response ends up in errors.
const maxErrorSnippet = 512

// httpPublisher posts events as JSON to a webhook. The event type travels in
// the X-Event-Type header so receivers can dispatch before decoding.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	sender  httpclient.Sender
	log     logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	headers := make(map[string]string, len(cfg.HTTP.Headers)+1)
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"

	return &httpPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: headers,
		sender:  httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	headers := make(map[string]string, len(h.headers)+1)
	for k, v := range h.headers {
		headers[k] = v
	}
	headers["X-Event-Type"] = evt.Type

	resp, err := h.sender.Send(ctx, h.method, h.url, body, headers)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		snippet := resp.Body()
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return fmt.Errorf("webhook answered %d: %s", code, strings.TrimSpace(string(snippet)))
	}
	h.log.DebugObj("webhook accepted event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_type":   evt.Type,
		"election_id":  evt.Election.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}
