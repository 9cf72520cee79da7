package publishers

import (
	"context"
	"fmt"

	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
)

// Builder creates a Publisher from a normalized config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error)

// Builders maps a publisher type to its constructor.
type Builders map[string]Builder

// DefaultBuilders knows every built-in sink.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
	}
}

// BuildFanout constructs a publisher per config and routes each to the event
// types it subscribed to. Publishers built before a failure are closed.
func BuildFanout(ctx context.Context, builders Builders, cfgs []PublisherConfig, log logger.Logger) (*Fanout, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	fanout := NewFanout()
	for _, cfg := range cfgs {
		build, ok := builders[cfg.Type]
		if !ok {
			_ = fanout.Close()
			return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
		}
		pub, err := build(ctx, cfg, log)
		if err != nil {
			_ = fanout.Close()
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		fanout.Route(pub, cfg.Events...)
	}
	return fanout, nil
}
