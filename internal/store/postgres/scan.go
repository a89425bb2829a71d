package postgres

import (
	"database/sql"
	"strings"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanComment scans a single row into a model.Comment.
// The row must contain columns in the order defined by commentColumns.
func scanComment(row scannable) (*model.Comment, error) {
	var c model.Comment
	var (
		parentType       int16
		flairText        sql.NullString
		flairCSSClass    sql.NullString
		distinguished    sql.NullString
		score            sql.NullInt32
		ups              sql.NullInt32
		downs            sql.NullInt32
		controversiality sql.NullInt32
		permalink        sql.NullString
		retrievedOn      sql.NullInt64
	)

	err := row.Scan(
		&c.ID,
		&c.LinkID,
		&parentType,
		&c.ParentID.ID,
		&c.Author,
		&c.Body,
		&c.Subreddit,
		&flairText,
		&flairCSSClass,
		&distinguished,
		&score,
		&ups,
		&downs,
		&controversiality,
		&permalink,
		&c.CreatedUTC,
		&retrievedOn,
		&c.ParentIsPost,
		&c.Stickied,
		&c.IsSubmitter,
		&c.Archived,
	)
	if err != nil {
		return nil, err
	}

	c.ParentID.Type = uint8(parentType)
	c.AuthorFlairText = stringPtr(flairText)
	c.AuthorFlairCSSClass = stringPtr(flairCSSClass)
	c.Distinguished = stringPtr(distinguished)
	c.Score = int32Ptr(score)
	c.Ups = int32Ptr(ups)
	c.Downs = int32Ptr(downs)
	c.Controversiality = int32Ptr(controversiality)
	c.Permalink = stringPtr(permalink)
	c.RetrievedOn = int64Ptr(retrievedOn)
	return &c, nil
}

// scanSubmission scans a single row into a model.Submission.
// The row must contain columns in the order defined by submissionColumns.
func scanSubmission(row scannable) (*model.Submission, error) {
	var s model.Submission
	var (
		url           sql.NullString
		domain        sql.NullString
		subreddit     sql.NullString
		subredditID   sql.NullString
		author        sql.NullString
		authorFlair   sql.NullString
		linkFlair     sql.NullString
		score         sql.NullInt32
		ups           sql.NullInt32
		downs         sql.NullInt32
		numCrossposts sql.NullInt64
		spoiler       sql.NullBool
		pinned        sql.NullBool
		retrievedOn   sql.NullInt64
	)

	err := row.Scan(
		&s.ID,
		&s.Permalink,
		&s.Title,
		&s.Selftext,
		&url,
		&domain,
		&subreddit,
		&subredditID,
		&author,
		&authorFlair,
		&linkFlair,
		&score,
		&ups,
		&downs,
		&s.NumComments,
		&numCrossposts,
		&s.Over18,
		&s.IsSelf,
		&spoiler,
		&pinned,
		&s.Stickied,
		&s.CreatedUTC,
		&retrievedOn,
	)
	if err != nil {
		return nil, err
	}

	s.URL = stringPtr(url)
	s.Domain = stringPtr(domain)
	s.Subreddit = stringPtr(subreddit)
	s.SubredditID = stringPtr(subredditID)
	s.Author = stringPtr(author)
	s.AuthorFlairText = stringPtr(authorFlair)
	s.LinkFlairText = stringPtr(linkFlair)
	s.Score = int32Ptr(score)
	s.Ups = int32Ptr(ups)
	s.Downs = int32Ptr(downs)
	if numCrossposts.Valid {
		n := uint32(numCrossposts.Int64)
		s.NumCrossposts = &n
	}
	s.Spoiler = boolPtr(spoiler)
	s.Pinned = boolPtr(pinned)
	s.RetrievedOn = int64Ptr(retrievedOn)
	return &s, nil
}

// nullStringPtr converts a *string to sql.NullString; nil is null.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: cleanText(*s), Valid: true}
}

// cleanText drops NUL characters, which PostgreSQL text columns reject.
// Older dumps carry them as \u0000 escapes inside bodies and titles.
func cleanText(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func nullInt32Ptr(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullUint32Ptr widens to BIGINT since Postgres has no unsigned integers.
func nullUint32Ptr(v *uint32) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullBoolPtr(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func int32Ptr(n sql.NullInt32) *int32 {
	if !n.Valid {
		return nil
	}
	return &n.Int32
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	return &b.Bool
}
