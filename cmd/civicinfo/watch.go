package main

import (
	"fmt"

	"github.com/samvad-hq/civicinfo-lookup/internal/app"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll elections and announce new ones to configured publishers",
	Long: `watch lists elections every WATCH_INTERVAL seconds and publishes an
event for each election it has not announced before. Publishers are read
from PUBLISHERS_FILE; announced ids are kept in the bbolt store at BBOLT_PATH.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		log.InfoObj("watcher starting", "config", cfg.Redacted())

		w, err := app.NewWatcher(cmd.Context(), cfg, log)
		if err != nil {
			log.ErrorObj("failed to initialize watcher", "error", err.Error())
			return err
		}
		if err := w.Run(cmd.Context()); err != nil {
			return fmt.Errorf("watcher run: %w", err)
		}
		return nil
	},
}
