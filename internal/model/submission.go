package model

import (
	"context"
	"encoding/json"
	"strings"
)

// Submission is one decoded line of a submissions dump.
type Submission struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`

	URL             *string `json:"url,omitempty"`
	Domain          *string `json:"domain,omitempty"`
	Subreddit       *string `json:"subreddit,omitempty"`
	SubredditID     *string `json:"subreddit_id,omitempty"`
	Author          *string `json:"author,omitempty"`
	AuthorFlairText *string `json:"author_flair_text,omitempty"`
	LinkFlairText   *string `json:"link_flair_text,omitempty"`

	Score         *int32  `json:"score,omitempty"`
	Ups           *int32  `json:"ups,omitempty"`
	Downs         *int32  `json:"downs,omitempty"`
	NumComments   int32   `json:"num_comments"`
	NumCrossposts *uint32 `json:"num_crossposts,omitempty"`

	Over18   bool  `json:"over_18"`
	IsSelf   bool  `json:"is_self"`
	Spoiler  *bool `json:"spoiler,omitempty"`
	Pinned   *bool `json:"pinned,omitempty"`
	Stickied bool  `json:"stickied"`

	CreatedUTC  int64  `json:"created_utc"`
	RetrievedOn *int64 `json:"retrieved_on,omitempty"`
}

type submissionJSON struct {
	ID        *string `json:"id"`
	Permalink *string `json:"permalink"`
	Title     *string `json:"title"`
	Selftext  *string `json:"selftext"`

	URL             *string `json:"url"`
	Domain          *string `json:"domain"`
	Subreddit       *string `json:"subreddit"`
	SubredditID     *string `json:"subreddit_id"`
	Author          *string `json:"author"`
	AuthorFlairText *string `json:"author_flair_text"`
	LinkFlairText   *string `json:"link_flair_text"`

	Score         *int32  `json:"score"`
	Ups           *int32  `json:"ups"`
	Downs         *int32  `json:"downs"`
	NumComments   *int32  `json:"num_comments"`
	NumCrossposts *uint32 `json:"num_crossposts"`

	Over18   *bool `json:"over_18"`
	IsSelf   *bool `json:"is_self"`
	Spoiler  *bool `json:"spoiler"`
	Pinned   *bool `json:"pinned"`
	Stickied bool  `json:"stickied"`

	CreatedUTC  json.RawMessage `json:"created_utc"`
	RetrievedOn *int64          `json:"retrieved_on"`
}

// ParseSubmission decodes one line of a submissions dump. NUL padding left
// by fixed-width dump writers is stripped first, and created_utc may be an
// integer, a float or an integer string.
func ParseSubmission(line string) (*Submission, error) {
	data := strings.Trim(line, "\x00")

	var w submissionJSON
	if err := unmarshalLine(KindSubmission, line, []byte(data), &w); err != nil {
		return nil, err
	}

	if err := checkRequired(KindSubmission, line,
		requiredField{"id", w.ID != nil},
		requiredField{"permalink", w.Permalink != nil},
		requiredField{"title", w.Title != nil},
		requiredField{"selftext", w.Selftext != nil},
		requiredField{"num_comments", w.NumComments != nil},
		requiredField{"over_18", w.Over18 != nil},
		requiredField{"is_self", w.IsSelf != nil},
		requiredField{"created_utc", len(w.CreatedUTC) > 0},
	); err != nil {
		return nil, err
	}

	created, err := NormalizeTimestamp(w.CreatedUTC)
	if err != nil {
		return nil, &DecodeError{Kind: InvalidTimestamp, Record: KindSubmission, Field: "created_utc", Line: line, Err: err}
	}

	return &Submission{
		ID:              *w.ID,
		Permalink:       *w.Permalink,
		Title:           *w.Title,
		Selftext:        *w.Selftext,
		URL:             w.URL,
		Domain:          w.Domain,
		Subreddit:       w.Subreddit,
		SubredditID:     w.SubredditID,
		Author:          w.Author,
		AuthorFlairText: w.AuthorFlairText,
		LinkFlairText:   w.LinkFlairText,
		Score:           w.Score,
		Ups:             w.Ups,
		Downs:           w.Downs,
		NumComments:     *w.NumComments,
		NumCrossposts:   w.NumCrossposts,
		Over18:          *w.Over18,
		IsSelf:          *w.IsSelf,
		Spoiler:         w.Spoiler,
		Pinned:          w.Pinned,
		Stickied:        w.Stickied,
		CreatedUTC:      created,
		RetrievedOn:     w.RetrievedOn,
	}, nil
}

// Kind returns KindSubmission.
func (s *Submission) Kind() RecordKind {
	return KindSubmission
}

// GetScore returns the submission score, if recorded.
func (s *Submission) GetScore() *int32 {
	return int32Ptr(s.Score)
}

// GetAuthor returns the author, which older dumps sometimes omit.
func (s *Submission) GetAuthor() *string {
	return stringPtr(s.Author)
}

// GetSubreddit returns the subreddit name, if recorded.
func (s *Submission) GetSubreddit() *string {
	return stringPtr(s.Subreddit)
}

// GetCreated returns created_utc in Unix seconds.
func (s *Submission) GetCreated() int64 {
	return s.CreatedUTC
}

// Store inserts the submission into st and returns the backend's count.
func (s *Submission) Store(ctx context.Context, st Storage) (int64, error) {
	return st.InsertSubmission(ctx, s)
}
