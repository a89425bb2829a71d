// Package rejects keeps the lines a run could not decode and writes them
// out as JSONL for later inspection or replay.
package rejects

import (
	"errors"
	"sync"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

// Reject is one line that failed to decode.
type Reject struct {
	RunID  string           `json:"run_id,omitempty"`
	Source string           `json:"source,omitempty"`
	LineNo int              `json:"line_no"`
	Record model.RecordKind `json:"record"`
	Kind   model.ErrorKind  `json:"kind"`
	Field  string           `json:"field,omitempty"`
	Error  string           `json:"error"`
	Line   string           `json:"line"`
}

// FromError builds a Reject from a decode failure. Errors that are not
// *model.DecodeError are recorded as malformed input.
func FromError(runID, source string, lineNo int, line string, err error) Reject {
	r := Reject{
		RunID:  runID,
		Source: source,
		LineNo: lineNo,
		Kind:   model.MalformedInput,
		Error:  err.Error(),
		Line:   line,
	}
	var de *model.DecodeError
	if errors.As(err, &de) {
		r.Record = de.Record
		r.Kind = de.Kind
		r.Field = de.Field
	}
	return r
}

// Collector accumulates rejects. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	rejects []Reject
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records r.
func (c *Collector) Add(r Reject) {
	c.mu.Lock()
	c.rejects = append(c.rejects, r)
	c.mu.Unlock()
}

// Len returns the number of rejects collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rejects)
}

// Snapshot returns a copy of the collected rejects in insertion order.
func (c *Collector) Snapshot() []Reject {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reject, len(c.rejects))
	copy(out, c.rejects)
	return out
}

// Drain returns the collected rejects and empties the collector.
func (c *Collector) Drain() []Reject {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.rejects
	c.rejects = nil
	return out
}

// Reset discards everything collected.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.rejects = nil
	c.mu.Unlock()
}
