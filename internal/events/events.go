package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicIngestStarted   = "pushdump.ingest.started"
	TopicIngestBatch     = "pushdump.ingest.batch"
	TopicIngestCompleted = "pushdump.ingest.completed"
	TopicIngestFailed    = "pushdump.ingest.failed"

	// TopicIngestRequest is consumed by the daemon, not emitted by runs.
	TopicIngestRequest = "pushdump.ingest.request"

	// TopicAll matches every pushdump subject.
	TopicAll = "pushdump.>"
)

// Event types

type IngestStarted struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}

// IngestBatch reports one committed batch. Counts are for the batch only.
type IngestBatch struct {
	RunID      string `json:"run_id"`
	Source     string `json:"source"`
	Batch      int    `json:"batch"`
	Records    int    `json:"records"`
	Stored     int64  `json:"stored"`
	Duplicates int64  `json:"duplicates"`
}

// Summary carries a run's final counters.
type Summary struct {
	Lines      int64          `json:"lines"`
	Decoded    int64          `json:"decoded"`
	Filtered   int64          `json:"filtered"`
	Stored     int64          `json:"stored"`
	Duplicates int64          `json:"duplicates"`
	Failed     int64          `json:"failed"`
	ByKind     map[string]int `json:"by_kind,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms"`
}

type IngestCompleted struct {
	RunID   string  `json:"run_id"`
	Source  string  `json:"source"`
	Kind    string  `json:"kind"`
	Summary Summary `json:"summary"`
}

type IngestFailed struct {
	RunID   string  `json:"run_id"`
	Source  string  `json:"source"`
	Kind    string  `json:"kind"`
	Error   string  `json:"error"`
	Summary Summary `json:"summary"`
}

// IngestRequest asks the daemon to ingest one dump.
type IngestRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Source    string `json:"source"`
	// Kind is "comments" or "submissions"; empty infers it from Source.
	Kind string `json:"kind,omitempty"`
}

// IngestResult answers an IngestRequest once its run has finished.
type IngestResult struct {
	RequestID string  `json:"request_id,omitempty"`
	RunID     string  `json:"run_id,omitempty"`
	Source    string  `json:"source"`
	Kind      string  `json:"kind,omitempty"`
	Error     string  `json:"error,omitempty"`
	Summary   Summary `json:"summary"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
