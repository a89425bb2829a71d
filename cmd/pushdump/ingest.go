package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pushdump/internal/config"
	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/ingest"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/source"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [flags] <source>...",
	Short: "Decode dumps and load them into the store",
	Long: `Decode one or more dumps and load them into the configured store.

A source is a file path, an s3://bucket/key URL or "-" for stdin. Files
ending in .zst or .xz are decompressed. The record kind is taken from
--kind or inferred from an RC_/RS_ file name.`,
	GroupID: "dumps",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDumps(cmd, args, false)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [flags] <source>...",
	Short: "Decode dumps without storing them and report failures",
	Long: `Decode one or more dumps without touching the store. Exits non-zero
when any line fails to decode.`,
	GroupID: "dumps",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDumps(cmd, args, true)
	},
}

func init() {
	addDumpFlags(ingestCmd)
	addDumpFlags(checkCmd)
	ingestCmd.Flags().Int("batch-size", 0, "records per transaction (default from config)")
}

func addDumpFlags(c *cobra.Command) {
	c.Flags().String("kind", "", "record kind: comments or submissions (default: from file name)")
	c.Flags().String("compression", "", "force decompression: zst, xz or none (default: from file name)")
	c.Flags().Int("workers", 0, "decode workers (default from config)")
	c.Flags().String("on-error", "", "skip or abort on undecodable lines (default from config)")
	c.Flags().Int("max-errors", -1, "fail after this many undecodable lines, 0 for no limit (default from config)")
	addFilterFlags(c)
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().Int32("min-score", 0, "keep records scoring at least this")
	c.Flags().StringSlice("author", nil, "keep records by these authors")
	c.Flags().StringSlice("subreddit", nil, "keep records from these subreddits")
	c.Flags().Int64("after", 0, "keep records created at or after this Unix time")
	c.Flags().Int64("before", 0, "keep records created before this Unix time")
}

// filterFromFlags overlays filter flags on the configured filter.
func filterFromFlags(cmd *cobra.Command, base model.RecordFilter) model.RecordFilter {
	f := base
	if cmd.Flags().Changed("min-score") {
		v, _ := cmd.Flags().GetInt32("min-score")
		f.MinScore = &v
	}
	if v, _ := cmd.Flags().GetStringSlice("author"); len(v) > 0 {
		f.Authors = v
	}
	if v, _ := cmd.Flags().GetStringSlice("subreddit"); len(v) > 0 {
		f.Subreddits = v
	}
	if v, _ := cmd.Flags().GetInt64("after"); v != 0 {
		f.After = v
	}
	if v, _ := cmd.Flags().GetInt64("before"); v != 0 {
		f.Before = v
	}
	return f
}

// optionsFromFlags builds pipeline options from config and flags.
func optionsFromFlags(cmd *cobra.Command, c *config.Config, dryRun bool) (ingest.Options, error) {
	opts := ingest.Options{
		Workers:   c.Workers,
		BatchSize: c.BatchSize,
		OnError:   c.OnError,
		MaxErrors: c.MaxErrors,
		Filter:    filterFromFlags(cmd, c.Filter),
		DryRun:    dryRun,
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		opts.Workers = v
	}
	if cmd.Flags().Lookup("batch-size") != nil {
		if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
			opts.BatchSize = v
		}
	}
	if v, _ := cmd.Flags().GetString("on-error"); v != "" {
		if v != config.OnErrorSkip && v != config.OnErrorAbort {
			return opts, fmt.Errorf("--on-error: must be %q or %q", config.OnErrorSkip, config.OnErrorAbort)
		}
		opts.OnError = v
	}
	if v, _ := cmd.Flags().GetInt("max-errors"); v >= 0 {
		opts.MaxErrors = v
	}
	return opts, nil
}

func runDumps(cmd *cobra.Command, args []string, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := optionsFromFlags(cmd, cfg, dryRun)
	if err != nil {
		return err
	}
	kindFlag, _ := cmd.Flags().GetString("kind")
	compression, _ := cmd.Flags().GetString("compression")

	var st store.Store
	if !dryRun {
		st, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Rejects are only collected when there is somewhere to write them.
	dest, err := rejectDestination(ctx, cfg)
	if err != nil {
		return err
	}
	var collector *rejects.Collector
	if dest != nil {
		collector = rejects.NewCollector()
	}
	pipeline := ingest.New(st, publisher, collector, logger)

	var results []events.IngestResult
	var failedRuns, failedLines int64
	for _, src := range args {
		res := ingestOne(ctx, pipeline, src, kindFlag, compression, opts)
		results = append(results, res)
		failedLines += res.Summary.Failed
		if res.Error != "" {
			failedRuns++
		}
		if !jsonOutput {
			printResult(res, dryRun)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if jsonOutput {
		printJSON(results)
	}

	// An interrupted run still gets its rejects written.
	if err := flushRejects(context.WithoutCancel(ctx), collector, dest); err != nil {
		logger.Error("failed to write rejects", "err", err)
	}

	switch {
	case failedRuns > 0:
		return fmt.Errorf("%d of %d sources failed", failedRuns, len(args))
	case dryRun && failedLines > 0:
		return fmt.Errorf("%d lines failed to decode", failedLines)
	}
	return nil
}

func ingestOne(ctx context.Context, p *ingest.Pipeline, src, kindFlag, compression string, opts ingest.Options) events.IngestResult {
	res := events.IngestResult{Source: src}

	kind, err := kindFor(src, kindFlag)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Kind = kind.String()
	opts.Kind = kind
	opts.Source = src

	r, err := source.Open(ctx, src, source.Options{S3: s3Options(cfg), Compression: compression})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer r.Close()

	stats, err := p.Run(ctx, r, opts)
	if stats != nil {
		res.RunID = stats.RunID
		res.Summary = stats.Summary()
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func kindFor(src, kindFlag string) (model.RecordKind, error) {
	if kindFlag != "" {
		return model.ParseRecordKind(kindFlag)
	}
	if kind, ok := source.KindFromName(src); ok {
		return kind, nil
	}
	return "", errors.New("cannot infer record kind from the file name; pass --kind")
}

// flushRejects writes everything collected during the command to dest.
func flushRejects(ctx context.Context, collector *rejects.Collector, dest rejects.Destination) error {
	if collector == nil || collector.Len() == 0 {
		return nil
	}
	if err := rejects.Flush(ctx, collector.Snapshot(), dest); err != nil {
		return err
	}
	logger.Info("rejects written", "count", collector.Len(), "destination", cfg.Rejects)
	return nil
}
