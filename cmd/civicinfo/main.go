package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/civicinfo-lookup/internal/app"
	"github.com/samvad-hq/civicinfo-lookup/internal/config"
	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	outputFormat string
	baseURL      string
)

var rootCmd = &cobra.Command{
	Use:   "civicinfo",
	Short: "Look up elections and divisions in the Civic Information API",
	Long: `civicinfo queries the Civic Information API and prints the raw answer.

The API key is read from CIVICINFO_API_KEY (or GOOGLE_API_KEY), optionally
via configs/.env.

  civicinfo elections            List upcoming elections
  civicinfo divisions manhattan  Search divisions
  civicinfo watch                Announce new elections to configured sinks`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatRaw, "Output format: raw, json, yaml")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (overrides config)")

	rootCmd.AddCommand(electionsCmd)
	rootCmd.AddCommand(divisionsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "civicinfo version %s\n", Version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

// loadRuntime loads config and the logger shared by every subcommand.
func loadRuntime() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func newClient() (*civicinfo.Client, error) {
	if _, err := parseFormat(outputFormat); err != nil {
		return nil, err
	}
	cfg, log, err := loadRuntime()
	if err != nil {
		return nil, err
	}
	return app.NewClient(cfg, log)
}

// errNonSuccess makes the process exit non-zero after a non-2xx body was printed.
var errNonSuccess = errors.New("request did not succeed")
