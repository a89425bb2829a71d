package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Comment is one decoded line of a comments dump.
type Comment struct {
	ID        string   `json:"id"`
	LinkID    string   `json:"link_id"`
	ParentID  ParentID `json:"parent_id"`
	Author    string   `json:"author"`
	Body      string   `json:"body"`
	Subreddit string   `json:"subreddit"`

	AuthorFlairText     *string `json:"author_flair_text,omitempty"`
	AuthorFlairCSSClass *string `json:"author_flair_css_class,omitempty"`
	Distinguished       *string `json:"distinguished,omitempty"`
	Score               *int32  `json:"score,omitempty"`
	Ups                 *int32  `json:"ups,omitempty"`
	Downs               *int32  `json:"downs,omitempty"`
	Controversiality    *int32  `json:"controversiality,omitempty"`
	Permalink           *string `json:"permalink,omitempty"`

	CreatedUTC  int64  `json:"created_utc"`
	RetrievedOn *int64 `json:"retrieved_on,omitempty"`

	ParentIsPost bool `json:"parent_is_post"`
	Stickied     bool `json:"stickied"`
	IsSubmitter  bool `json:"is_submitter"`
	Archived     bool `json:"archived"`
}

// commentJSON mirrors the dump encoding. Required fields are pointers so
// that absence can be told apart from zero values.
type commentJSON struct {
	ID        *string `json:"id"`
	LinkID    *string `json:"link_id"`
	ParentID  *string `json:"parent_id"`
	Author    *string `json:"author"`
	Body      *string `json:"body"`
	Subreddit *string `json:"subreddit"`

	AuthorFlairText     *string `json:"author_flair_text"`
	AuthorFlairCSSClass *string `json:"author_flair_css_class"`
	Distinguished       *string `json:"distinguished"`
	Score               *int32  `json:"score"`
	Ups                 *int32  `json:"ups"`
	Downs               *int32  `json:"downs"`
	Controversiality    *int32  `json:"controversiality"`
	Permalink           *string `json:"permalink"`

	CreatedUTC  json.RawMessage `json:"created_utc"`
	RetrievedOn *int64          `json:"retrieved_on"`

	ParentIsPost bool `json:"parent_is_post"`
	Stickied     bool `json:"stickied"`
	IsSubmitter  bool `json:"is_submitter"`
	Archived     bool `json:"archived"`
}

// ParseComment decodes one line of a comments dump.
//
// created_utc must be a JSON number. Comment dumps from some eras write it
// as a float, so a fractional value is truncated to whole seconds; any
// other encoding is a schema violation.
func ParseComment(line string) (*Comment, error) {
	var w commentJSON
	if err := unmarshalLine(KindComment, line, []byte(line), &w); err != nil {
		return nil, err
	}

	if err := checkRequired(KindComment, line,
		requiredField{"id", w.ID != nil},
		requiredField{"link_id", w.LinkID != nil},
		requiredField{"author", w.Author != nil},
		requiredField{"body", w.Body != nil},
		requiredField{"subreddit", w.Subreddit != nil},
		requiredField{"created_utc", rawPresent(w.CreatedUTC)},
	); err != nil {
		return nil, err
	}

	created, err := truncateFloatTimestamp(w.CreatedUTC)
	if err != nil {
		return nil, &DecodeError{Kind: SchemaViolation, Record: KindComment, Field: "created_utc", Line: line, Err: err}
	}

	parent, err := ParseParentID(w.ParentID)
	if err != nil {
		kind := InvalidParentID
		if errors.Is(err, ErrNullParentID) {
			kind = NullParentID
		}
		return nil, &DecodeError{Kind: kind, Record: KindComment, Field: "parent_id", Line: line, Err: err}
	}

	return &Comment{
		ID:                  *w.ID,
		LinkID:              *w.LinkID,
		ParentID:            parent,
		Author:              *w.Author,
		Body:                *w.Body,
		Subreddit:           *w.Subreddit,
		AuthorFlairText:     w.AuthorFlairText,
		AuthorFlairCSSClass: w.AuthorFlairCSSClass,
		Distinguished:       w.Distinguished,
		Score:               w.Score,
		Ups:                 w.Ups,
		Downs:               w.Downs,
		Controversiality:    w.Controversiality,
		Permalink:           w.Permalink,
		CreatedUTC:          created,
		RetrievedOn:         w.RetrievedOn,
		ParentIsPost:        w.ParentIsPost,
		Stickied:            w.Stickied,
		IsSubmitter:         w.IsSubmitter,
		Archived:            w.Archived,
	}, nil
}

// truncateFloatTimestamp accepts an integer or float JSON number and
// returns whole seconds. Strings are rejected: no comment dump encodes
// created_utc that way.
func truncateFloatTimestamp(raw json.RawMessage) (int64, error) {
	if shape := jsonShape(raw); shape != "number" {
		return 0, fmt.Errorf("expected integer, got %s", shape)
	}
	ts, ok := numberTimestamp(raw)
	if !ok {
		return 0, fmt.Errorf("integer %s out of range", raw)
	}
	return ts, nil
}

// rawPresent reports whether a raw field was set to something other than null.
func rawPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Kind returns KindComment.
func (c *Comment) Kind() RecordKind {
	return KindComment
}

// GetScore returns the comment score, if recorded.
func (c *Comment) GetScore() *int32 {
	return int32Ptr(c.Score)
}

// GetAuthor always returns a value for a decoded comment.
func (c *Comment) GetAuthor() *string {
	return stringPtr(&c.Author)
}

// GetSubreddit always returns a value for a decoded comment.
func (c *Comment) GetSubreddit() *string {
	return stringPtr(&c.Subreddit)
}

// GetCreated returns created_utc in Unix seconds.
func (c *Comment) GetCreated() int64 {
	return c.CreatedUTC
}

// Store inserts the comment into s and returns the backend's count.
func (c *Comment) Store(ctx context.Context, s Storage) (int64, error) {
	return s.InsertComment(ctx, c)
}
