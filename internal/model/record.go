// Package model decodes archived Reddit comment and submission lines into
// strictly typed records.
//
// Dumps written over many years disagree on field encodings. The decoders
// absorb the known drift (float or string timestamps, NUL padding, composite
// parent ids) and otherwise fail with a *DecodeError that carries the raw
// line. Decoding is pure and safe for concurrent use.
package model

import (
	"context"
	"fmt"
	"strings"
)

// RecordKind names the two kinds of archived records.
type RecordKind string

const (
	KindComment    RecordKind = "comment"
	KindSubmission RecordKind = "submission"
)

// String returns the string representation of the record kind.
func (k RecordKind) String() string {
	return string(k)
}

// IsValid checks whether the record kind is a known value.
func (k RecordKind) IsValid() bool {
	switch k {
	case KindComment, KindSubmission:
		return true
	}
	return false
}

// ParseRecordKind accepts the singular and plural record names and the
// Pushshift dump prefixes RC and RS.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "comment", "comments", "rc":
		return KindComment, nil
	case "submission", "submissions", "rs":
		return KindSubmission, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// ParseLine decodes line as a record of the given kind.
func ParseLine(kind RecordKind, line string) (Storable, error) {
	switch kind {
	case KindComment:
		c, err := ParseComment(line)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindSubmission:
		s, err := ParseSubmission(line)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}

// Filterable is the kind-independent view of a record used by filters.
type Filterable interface {
	GetScore() *int32
	GetAuthor() *string
	GetSubreddit() *string
	GetCreated() int64
}

// Storage is the capability a record needs to persist itself.
type Storage interface {
	InsertComment(ctx context.Context, c *Comment) (int64, error)
	InsertSubmission(ctx context.Context, s *Submission) (int64, error)
}

// Storable is implemented by both record kinds.
type Storable interface {
	Filterable
	Kind() RecordKind
	Store(ctx context.Context, s Storage) (int64, error)
}

var (
	_ Storable = (*Comment)(nil)
	_ Storable = (*Submission)(nil)
)

func int32Ptr(p *int32) *int32 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func stringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
