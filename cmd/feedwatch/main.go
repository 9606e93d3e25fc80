// Package main provides the CLI entrypoint for the feed probe.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/proctor/internal/feedwatch"
	"github.com/okian/proctor/pkg/logger"
)

const (
	defaultBaseURL  = "http://localhost:5000"
	defaultDuration = 30 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultWorkers  = 4
)

var (
	baseURL  string
	duration time.Duration
	timeout  time.Duration
	submit   int
	workers  int
	verbose  bool
	jsonLogs bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "feedwatch",
		Short:        "Watch a proctor live channel and verify event ordering",
		SilenceUsage: true,
		RunE:         runWatch,
	}

	rootCmd.Flags().StringVar(&baseURL, "url", defaultBaseURL, "base URL of the service")
	rootCmd.Flags().DurationVar(&duration, "duration", defaultDuration, "how long to watch")
	rootCmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "HTTP request timeout")
	rootCmd.Flags().IntVar(&submit, "submit", 0, "ad-hoc events to post while watching")
	rootCmd.Flags().IntVar(&workers, "workers", defaultWorkers, "concurrent submitters")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "log every frame")
	rootCmd.Flags().BoolVar(&jsonLogs, "json", false, "emit JSON logs")

	return rootCmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	opts := []logger.Option{}
	if jsonLogs {
		opts = append(opts, logger.WithFormat(logger.FormatJSON))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := feedwatch.Run(ctx, &feedwatch.Config{
		BaseURL:  baseURL,
		Duration: duration,
		Timeout:  timeout,
		Submit:   submit,
		Workers:  workers,
		Verbose:  verbose,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "frames=%d events=%d updates=%d stats=%d violations=%d\n",
		stats.Frames, stats.Events, stats.SubjectUpdates, stats.StatsUpdates, stats.Violations)
	return nil
}
