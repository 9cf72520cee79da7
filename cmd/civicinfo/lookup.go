package main

import (
	"fmt"

	"github.com/samvad-hq/civicinfo-lookup/pkg/civicinfo"
	"github.com/spf13/cobra"
)

var electionsCmd = &cobra.Command{
	Use:   "elections",
	Short: "List elections",
	Example: `  civicinfo elections
  civicinfo elections -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		resp, err := client.ListElections(cmd.Context())
		if err != nil {
			return err
		}
		return report(cmd, resp)
	},
}

var divisionsCmd = &cobra.Command{
	Use:   "divisions <query>",
	Short: "Search administrative divisions",
	Example: `  civicinfo divisions manhattan
  civicinfo divisions "cook county" -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		resp, err := client.SearchDivisions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report(cmd, resp)
	},
}

// report prints the status line to stderr and the body to stdout, whatever the status.
func report(cmd *cobra.Command, resp *civicinfo.Response) error {
	format, err := parseFormat(outputFormat)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", resp.StatusCode)
	if err := writeBody(cmd.OutOrStdout(), resp.Body, format); err != nil {
		return err
	}
	if !resp.OK() {
		if reason := resp.Reason(); reason != "" {
			return fmt.Errorf("%w: status %d (%s)", errNonSuccess, resp.StatusCode, reason)
		}
		return fmt.Errorf("%w: status %d", errNonSuccess, resp.StatusCode)
	}
	return nil
}
