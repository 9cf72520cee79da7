package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/civicinfo-lookup/internal/config"
	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
	"github.com/samvad-hq/civicinfo-lookup/internal/storage"
	"github.com/samvad-hq/civicinfo-lookup/internal/watcher"
	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/samvad-hq/civicinfo-lookup/pkg/publishers"
)

// Watcher is the long-running election watcher. It polls the Civic
// Information API on a fixed interval and announces new elections through
// the configured publishers, remembering what it announced in the store.
type Watcher struct {
	service  *watcher.Service
	fanout   *publishers.Fanout
	store    storage.Store
	interval time.Duration
	log      logger.Logger
}

// NewWatcher builds a watcher runtime from config.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	settings, err := publishers.LoadSettings(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	enabled := settings.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers enabled in %s", cfg.PublishersFile)
	}

	fanout, err := publishers.BuildFanout(ctx, publishers.DefaultBuilders(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	if fanout.Subscribers(publishers.EventTypeElectionDiscovered) == 0 {
		_ = fanout.Close()
		return nil, fmt.Errorf("no enabled publisher subscribes to %s", publishers.EventTypeElectionDiscovered)
	}
	summaries := make([]map[string]any, 0, len(enabled))
	for _, pc := range enabled {
		summaries = append(summaries, map[string]any{
			"id":     pc.ID,
			"type":   pc.Type,
			"events": pc.Events,
		})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return newWatcher(watcher.NewService(client, fanout, log, store), fanout, store, cfg.WatchInterval, log), nil
}

func newWatcher(svc *watcher.Service, fanout *publishers.Fanout, store storage.Store, interval time.Duration, log logger.Logger) *Watcher {
	return &Watcher{
		service:  svc,
		fanout:   fanout,
		store:    store,
		interval: interval,
		log:      log,
	}
}

// NewClient builds the civicinfo client shared by the CLI commands.
func NewClient(cfg *config.Config, log logger.Logger) (*civicinfo.Client, error) {
	client, err := civicinfo.New(cfg.APIKey,
		civicinfo.WithBaseURL(cfg.BaseURL),
		civicinfo.WithTimeout(cfg.RequestTimeout),
		civicinfo.WithLogger(log),
	)
	if err != nil {
		if errors.Is(err, civicinfo.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w (set CIVICINFO_API_KEY or GOOGLE_API_KEY)", err)
		}
		return nil, fmt.Errorf("init civicinfo client: %w", err)
	}
	return client, nil
}

// Run starts the watch loop until the context is cancelled. The first pass
// runs immediately; failed passes are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()
	if w.interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}

	w.log.InfoObj("watch loop starting", "watcher_state", map[string]any{
		"publishers_count": w.fanout.Size(),
		"watch_interval":   w.interval.String(),
	})

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := w.service.Run(ctx)
	if err != nil {
		w.log.ErrorObj("watch pass failed", "watch_error", map[string]any{
			"error":      err.Error(),
			"published":  res.Published,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return
	}
	w.log.DebugObj("watch pass timing", "watch_meta", map[string]any{
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

func (w *Watcher) close() {
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if w.store == nil {
		return
	}
	if err := w.store.Close(); err != nil {
		w.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
