// Package main provides the command-line interface for bugme.
package main

import (
	"errors"
	"os"

	"github.com/lerenn/bugme/pkg/batch"
	"github.com/lerenn/bugme/pkg/creds"
	"github.com/lerenn/bugme/pkg/issue"
	"github.com/lerenn/bugme/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	credsPath  string
	fieldsSpec string
	output     string
	sortKey    string
	reverse    bool
	timeFormat string
	mine       bool
	strict     bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bugme [tag|url]...",
		Short: "Show issues from multiple trackers",
		Long: `Query issues across Bugzilla, GitHub, GitLab, Jira, Redmine and friends ` +
			`by short tag (bsc#1213811, gh#containers/podman#19529) or URL, ` +
			`and show them as one table.`,
		Args:         cobra.ArbitraryArgs,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&credsPath, "creds", "c", creds.DefaultPath(), "Path to the credentials file")
	rootCmd.Flags().StringVarP(&fieldsSpec, "fields", "f", "tag,status,updated,title", "Comma-separated output fields")
	rootCmd.Flags().StringVarP(&output, "output", "o", "text", "Output type: text, html or json")
	rootCmd.Flags().StringVarP(&sortKey, "sort", "s", "", "Sort key (tag, url, status, created, updated, title)")
	rootCmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Reverse the sort order")
	rootCmd.Flags().StringVarP(&timeFormat, "time", "t", "timeago", `Date format: "timeago" or a Go time layout`)
	rootCmd.Flags().BoolVarP(&mine, "mine", "m", false, "Treat arguments as hosts and show your open issues there")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Fail the whole run when any host cannot be resolved")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.NewDefaultLogger(verbose)

	fields, err := parseFields(fieldsSpec)
	if err != nil {
		return err
	}
	display, err := newRenderer(output, fields, timeFormat)
	if err != nil {
		return err
	}

	// A missing file at the default location just means anonymous access.
	credentials, err := creds.Load(credsPath)
	if err != nil {
		if !errors.Is(err, creds.ErrNotFound) || cmd.Flags().Changed("creds") {
			return err
		}
	}

	var opts []batch.Option
	if strict {
		opts = append(opts, batch.WithStrict())
	}
	fetcher := batch.NewFetcher(credentials, log, opts...)

	var issues []issue.Issue
	if mine {
		issues, err = fetcher.GetUserIssues(cmd.Context(), args)
	} else {
		issues, err = fetcher.GetIssues(cmd.Context(), args)
	}
	if err != nil {
		return err
	}

	if sortKey != "" {
		field, err := issue.ParseField(sortKey)
		if err != nil {
			return err
		}
		issue.SortBy(issues, field, reverse)
	}

	return display.render(cmd.OutOrStdout(), issues)
}
