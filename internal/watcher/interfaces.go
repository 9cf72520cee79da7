package watcher

import (
	"context"

	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/samvad-hq/civicinfo-lookup/pkg/publishers"
)

// ElectionSource lists elections; *civicinfo.Client satisfies it.
type ElectionSource interface {
	ListElections(ctx context.Context) (*civicinfo.Response, error)
}

// EventPublisher publishes events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers the fingerprint each election was last announced with.
type Deduper interface {
	Fingerprint(id string) (string, bool, error)
	Remember(id, fingerprint string) error
}
