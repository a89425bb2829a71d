// Package ingest runs a dump through decoding, filtering and storage.
//
// A run has one reader, a pool of decode workers and one writer. The
// writer commits records in batches, each inside a store transaction, so a
// failed batch leaves nothing half written. Records from parallel workers
// reach the store in no particular order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/pushdump/internal/config"
	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/idgen"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/source"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 500
)

// ErrTooManyErrors is returned when a run exceeds Options.MaxErrors.
var ErrTooManyErrors = errors.New("too many undecodable lines")

// Options controls a single run.
type Options struct {
	Kind      model.RecordKind
	Source    string // reported in events and rejects
	Workers   int
	BatchSize int
	OnError   string // config.OnErrorSkip or config.OnErrorAbort
	MaxErrors int    // 0 means unlimited
	Filter    model.RecordFilter
	// DryRun decodes and filters without touching the store.
	DryRun bool
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.OnError == "" {
		o.OnError = config.OnErrorSkip
	}
	return o
}

// Pipeline ingests dumps into a store.
type Pipeline struct {
	store     store.Store
	publisher events.Publisher
	rejects   *rejects.Collector
	logger    *slog.Logger
}

// New creates a pipeline. The store may be nil for dry runs only; a nil
// publisher discards events and a nil collector discards rejects.
func New(s store.Store, pub events.Publisher, rc *rejects.Collector, logger *slog.Logger) *Pipeline {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: s, publisher: pub, rejects: rc, logger: logger}
}

type rawLine struct {
	no   int
	text string
}

// Run ingests every line of r. Once the options are accepted the returned
// Stats are populated even when the run fails.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, opts Options) (*Stats, error) {
	opts = opts.withDefaults()
	if !opts.Kind.IsValid() {
		return nil, fmt.Errorf("unknown record kind %q", opts.Kind)
	}
	if opts.OnError != config.OnErrorSkip && opts.OnError != config.OnErrorAbort {
		return nil, fmt.Errorf("unknown error policy %q", opts.OnError)
	}
	if !opts.DryRun && p.store == nil {
		return nil, errors.New("ingest: no store configured")
	}

	runID, err := idgen.NewRunID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	stats := &Stats{RunID: runID, Source: opts.Source, Kind: opts.Kind}
	start := time.Now()
	logger := p.logger.With("run_id", runID, "source", opts.Source, "kind", opts.Kind.String())
	logger.Info("ingest started", "workers", opts.Workers, "batch_size", opts.BatchSize, "dry_run", opts.DryRun)
	p.publish(ctx, events.TopicIngestStarted, events.IngestStarted{
		RunID:     runID,
		Source:    opts.Source,
		Kind:      opts.Kind.String(),
		StartedAt: start.UTC(),
	})

	var c counters
	runErr := p.run(ctx, r, opts, runID, logger, &c)

	c.snapshot(stats)
	stats.Elapsed = time.Since(start)

	if runErr != nil {
		logger.Error("ingest failed", "lines", stats.Lines, "failed", stats.Failed, "err", runErr)
		p.publish(ctx, events.TopicIngestFailed, events.IngestFailed{
			RunID:   runID,
			Source:  opts.Source,
			Kind:    opts.Kind.String(),
			Error:   runErr.Error(),
			Summary: stats.Summary(),
		})
		return stats, runErr
	}

	logger.Info("ingest completed",
		"lines", stats.Lines,
		"stored", stats.Stored,
		"duplicates", stats.Duplicates,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
		"elapsed", stats.Elapsed)
	p.publish(ctx, events.TopicIngestCompleted, events.IngestCompleted{
		RunID:   runID,
		Source:  opts.Source,
		Kind:    opts.Kind.String(),
		Summary: stats.Summary(),
	})
	return stats, nil
}

func (p *Pipeline) run(ctx context.Context, r io.Reader, opts Options, runID string, logger *slog.Logger, c *counters) error {
	kind := opts.Kind.String()
	lines := make(chan rawLine, opts.Workers*2)
	decoded := make(chan model.Storable, opts.BatchSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(lines)
		err := source.Lines(r, func(no int, text string) error {
			c.lines.Add(1)
			linesTotal.WithLabelValues(kind).Inc()
			select {
			case lines <- rawLine{no: no, text: text}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("read %s: %w", opts.Source, err)
		}
		return err
	})

	var workers sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for l := range lines {
				rec, err := model.ParseLine(opts.Kind, l.text)
				if err != nil {
					if err := p.handleFailure(opts, runID, logger, c, l, err); err != nil {
						return err
					}
					continue
				}
				c.decoded.Add(1)
				if !opts.Filter.Match(rec) {
					c.filtered.Add(1)
					continue
				}
				if opts.DryRun {
					continue
				}
				select {
				case decoded <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		workers.Wait()
		close(decoded)
		return nil
	})

	g.Go(func() error {
		return p.write(gctx, decoded, opts, runID, logger, c)
	})

	return g.Wait()
}

// handleFailure applies the error policy to one undecodable line. A
// non-nil return ends the run.
func (p *Pipeline) handleFailure(opts Options, runID string, logger *slog.Logger, c *counters, l rawLine, err error) error {
	ek, ok := model.KindOf(err)
	if !ok {
		ek = model.MalformedInput
	}
	failed := c.addFailure(ek)
	decodeErrorsTotal.WithLabelValues(opts.Kind.String(), ek.String()).Inc()
	if p.rejects != nil {
		p.rejects.Add(rejects.FromError(runID, opts.Source, l.no, l.text, err))
	}

	if opts.OnError == config.OnErrorAbort {
		return fmt.Errorf("line %d: %w", l.no, err)
	}
	logger.Debug("skipping undecodable line", "line", l.no, "reason", ek.String(), "err", err)
	if opts.MaxErrors > 0 && failed > int64(opts.MaxErrors) {
		return fmt.Errorf("%w: %d failures exceed limit of %d", ErrTooManyErrors, failed, opts.MaxErrors)
	}
	return nil
}

// write drains in, committing one transaction per batch.
func (p *Pipeline) write(ctx context.Context, in <-chan model.Storable, opts Options, runID string, logger *slog.Logger, c *counters) error {
	kind := opts.Kind.String()
	batch := make([]model.Storable, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n := int(c.batches.Add(1))
		start := time.Now()

		var stored, dups int64
		err := p.store.RunInTransaction(ctx, func(tx store.Store) error {
			stored, dups = 0, 0
			for _, rec := range batch {
				inserted, err := rec.Store(ctx, tx)
				if err != nil {
					return fmt.Errorf("store %s: %w", rec.Kind(), err)
				}
				if inserted > 0 {
					stored++
				} else {
					dups++
				}
			}
			return nil
		})
		batchDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("commit batch %d: %w", n, err)
		}

		c.stored.Add(stored)
		c.duplicates.Add(dups)
		recordsStoredTotal.WithLabelValues(kind).Add(float64(stored))
		recordsDuplicateTotal.WithLabelValues(kind).Add(float64(dups))
		logger.Debug("batch committed", "batch", n, "records", len(batch), "stored", stored, "duplicates", dups)
		p.publish(ctx, events.TopicIngestBatch, events.IngestBatch{
			RunID:      runID,
			Source:     opts.Source,
			Batch:      n,
			Records:    len(batch),
			Stored:     stored,
			Duplicates: dups,
		})

		batch = batch[:0]
		return nil
	}

	for rec := range in {
		batch = append(batch, rec)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (p *Pipeline) publish(ctx context.Context, topic string, event any) {
	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		p.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}
