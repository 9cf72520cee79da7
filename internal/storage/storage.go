// Package storage remembers which elections have been announced and in what state.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store maps announced election ids to the fingerprint they were announced with.
type Store interface {
	Close() error
	// Fingerprint returns the recorded fingerprint for id. The bool is false
	// when id was never recorded or its entry expired.
	Fingerprint(id string) (string, bool, error)
	Remember(id, fingerprint string) error
}

// Options controls retention.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	// Elections are listed months ahead; keep ids past a full cycle.
	defaultEntryTTL        = 400 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBoltStore(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                             { return nil }
func (noopStore) Fingerprint(string) (string, bool, error) { return "", false, nil }
func (noopStore) Remember(string, string) error            { return nil }
