package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

// ErrNotFound is returned by the read methods when no record has the id.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence interface for normalized records.
type Store interface {
	// Inserts. The returned count is 0 when the id already exists.
	model.Storage

	// Reads
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	CountRecords(ctx context.Context, kind model.RecordKind) (int64, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
