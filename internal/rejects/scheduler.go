package rejects

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler periodically drains a collector and writes what it took to one
// or more destinations. Each flush goes to a new part (see
// Destination.Part), so a long-running daemon never rewrites or holds on to
// rejects it has already written.
type Scheduler struct {
	collector    *Collector
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	stamp   string
	part    int
	pending []Reject // drained but not yet written everywhere

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that flushes c to the given destinations
// at the specified interval.
func NewScheduler(c *Collector, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		collector:    c,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		stamp:        time.Now().UTC().Format("20060102T150405Z"),
		part:         1,
	}
}

// Start begins periodic flushing.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler, waits for the current flush (if any) and
// performs a final flush so nothing collected is lost.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.FlushOnce(context.Background())
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FlushOnce(ctx)
		}
	}
}

// FlushOnce writes the rejects collected since the last successful flush
// as the next part. A failed write keeps them for the next attempt, which
// reuses the same part name.
func (s *Scheduler) FlushOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := append(s.pending, s.collector.Drain()...)
	if len(batch) == 0 {
		return
	}

	var buf bytes.Buffer
	if err := ExportJSONL(batch, &buf); err != nil {
		s.pending = batch
		s.logger.Error("reject export failed", "err", err)
		return
	}
	data := buf.Bytes()
	suffix := fmt.Sprintf("%s-%04d", s.stamp, s.part)

	failed := 0
	for i, dest := range s.destinations {
		if err := dest.Part(suffix).Write(ctx, data); err != nil {
			failed++
			s.logger.Error("reject destination write failed", "destination", fmt.Sprintf("%d", i), "part", suffix, "err", err)
		}
	}
	if failed > 0 {
		s.pending = batch
		return
	}
	s.pending = nil
	s.part++

	s.logger.Info("rejects flushed", "destinations", len(s.destinations), "part", suffix, "rejects", len(batch), "bytes", len(data))
}
