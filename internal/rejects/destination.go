package rejects

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alfredjeanlab/pushdump/internal/objstore"
)

// Destination is the interface for a reject sink (file, S3).
type Destination interface {
	// Write replaces the destination's contents with the JSONL payload.
	Write(ctx context.Context, data []byte) error
	// Part returns a sibling destination whose name carries suffix before
	// the extension, so rejects.jsonl becomes rejects-<suffix>.jsonl.
	Part(suffix string) Destination
}

// FileDestination writes JSONL data to a local file.
type FileDestination struct {
	path string
}

// NewFileDestination creates a destination that writes to path.
func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

// Part returns a file destination next to d.
func (d *FileDestination) Part(suffix string) Destination {
	return &FileDestination{path: partName(d.path, suffix)}
}

// Write replaces the file atomically by writing a sibling temp file first.
func (d *FileDestination) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reject dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rejects-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename reject file: %w", err)
	}
	return nil
}

// NewDestination returns an S3 destination for s3:// locations and a file
// destination otherwise.
func NewDestination(ctx context.Context, location string, opts objstore.Options) (Destination, error) {
	if !objstore.IsURL(location) {
		return NewFileDestination(location), nil
	}
	bucket, key, err := objstore.ParseURL(location)
	if err != nil {
		return nil, err
	}
	return NewS3Destination(ctx, bucket, key, opts)
}

func partName(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + suffix + ext
}

// Flush exports rejects and writes the result to dest.
func Flush(ctx context.Context, rejects []Reject, dest Destination) error {
	var buf bytes.Buffer
	if err := ExportJSONL(rejects, &buf); err != nil {
		return err
	}
	return dest.Write(ctx, buf.Bytes())
}
