package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/model"
)

// Stats summarizes one run.
type Stats struct {
	RunID  string
	Source string
	Kind   model.RecordKind

	Lines      int64 // non-blank lines read
	Decoded    int64 // lines that decoded to a record
	Filtered   int64 // decoded records rejected by the filter
	Stored     int64 // records newly written
	Duplicates int64 // records whose id was already stored
	Failed     int64 // lines that failed to decode
	Batches    int

	ByKind  map[model.ErrorKind]int
	Elapsed time.Duration
}

// Summary converts the stats to their event form.
func (s *Stats) Summary() events.Summary {
	sum := events.Summary{
		Lines:      s.Lines,
		Decoded:    s.Decoded,
		Filtered:   s.Filtered,
		Stored:     s.Stored,
		Duplicates: s.Duplicates,
		Failed:     s.Failed,
		ElapsedMS:  s.Elapsed.Milliseconds(),
	}
	if len(s.ByKind) > 0 {
		sum.ByKind = make(map[string]int, len(s.ByKind))
		for k, n := range s.ByKind {
			sum.ByKind[string(k)] = n
		}
	}
	return sum
}

// counters is the mutable form of Stats shared by the pipeline goroutines.
type counters struct {
	lines, decoded, filtered, stored, duplicates, failed atomic.Int64
	batches                                              atomic.Int32

	mu     sync.Mutex
	byKind map[model.ErrorKind]int
}

func (c *counters) addFailure(k model.ErrorKind) int64 {
	c.mu.Lock()
	if c.byKind == nil {
		c.byKind = make(map[model.ErrorKind]int)
	}
	c.byKind[k]++
	c.mu.Unlock()
	return c.failed.Add(1)
}

func (c *counters) snapshot(s *Stats) {
	s.Lines = c.lines.Load()
	s.Decoded = c.decoded.Load()
	s.Filtered = c.filtered.Load()
	s.Stored = c.stored.Load()
	s.Duplicates = c.duplicates.Load()
	s.Failed = c.failed.Load()
	s.Batches = int(c.batches.Load())

	c.mu.Lock()
	s.ByKind = make(map[model.ErrorKind]int, len(c.byKind))
	for k, n := range c.byKind {
		s.ByKind[k] = n
	}
	c.mu.Unlock()
}
