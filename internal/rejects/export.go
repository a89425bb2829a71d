package rejects

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string                  `json:"version"`
	Type      string                  `json:"type"`
	Timestamp time.Time               `json:"timestamp"`
	Count     int                     `json:"count"`
	ByKind    map[model.ErrorKind]int `json:"by_kind"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data Reject `json:"data"`
}

// ExportJSONL writes a header followed by one record per reject to w.
// Rejects are ordered by source and line number.
func ExportJSONL(rejects []Reject, w io.Writer) error {
	sorted := make([]Reject, len(rejects))
	copy(sorted, rejects)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].LineNo < sorted[j].LineNo
	})

	byKind := make(map[model.ErrorKind]int)
	for _, r := range sorted {
		byKind[r.Kind]++
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		Count:     len(sorted),
		ByKind:    byKind,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, r := range sorted {
		if err := enc.Encode(record{Type: "reject", Data: r}); err != nil {
			return fmt.Errorf("encode reject %s:%d: %w", r.Source, r.LineNo, err)
		}
	}
	return nil
}
