package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

// commentColumns is the column list used for SELECT statements on the comments table.
const commentColumns = `id, link_id, parent_type, parent_id, author, body, subreddit,
	author_flair_text, author_flair_css_class, distinguished, score, ups, downs,
	controversiality, permalink, created_utc, retrieved_on,
	parent_is_post, stickied, is_submitter, archived`

// submissionColumns is the column list used for SELECT statements on the submissions table.
const submissionColumns = `id, permalink, title, selftext, url, domain, subreddit,
	subreddit_id, author, author_flair_text, link_flair_text, score, ups, downs,
	num_comments, num_crossposts, over_18, is_self, spoiler, pinned, stickied,
	created_utc, retrieved_on`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryInsertComment(ctx context.Context, db executor, c *model.Comment) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21
		) ON CONFLICT (id) DO NOTHING`,
		cleanText(c.ID),
		cleanText(c.LinkID),
		int16(c.ParentID.Type),
		cleanText(c.ParentID.ID),
		cleanText(c.Author),
		cleanText(c.Body),
		cleanText(c.Subreddit),
		nullStringPtr(c.AuthorFlairText),
		nullStringPtr(c.AuthorFlairCSSClass),
		nullStringPtr(c.Distinguished),
		nullInt32Ptr(c.Score),
		nullInt32Ptr(c.Ups),
		nullInt32Ptr(c.Downs),
		nullInt32Ptr(c.Controversiality),
		nullStringPtr(c.Permalink),
		c.CreatedUTC,
		nullInt64Ptr(c.RetrievedOn),
		c.ParentIsPost,
		c.Stickied,
		c.IsSubmitter,
		c.Archived,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryInsertSubmission(ctx context.Context, db executor, s *model.Submission) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21,
			$22, $23
		) ON CONFLICT (id) DO NOTHING`,
		cleanText(s.ID),
		cleanText(s.Permalink),
		cleanText(s.Title),
		cleanText(s.Selftext),
		nullStringPtr(s.URL),
		nullStringPtr(s.Domain),
		nullStringPtr(s.Subreddit),
		nullStringPtr(s.SubredditID),
		nullStringPtr(s.Author),
		nullStringPtr(s.AuthorFlairText),
		nullStringPtr(s.LinkFlairText),
		nullInt32Ptr(s.Score),
		nullInt32Ptr(s.Ups),
		nullInt32Ptr(s.Downs),
		s.NumComments,
		nullUint32Ptr(s.NumCrossposts),
		s.Over18,
		s.IsSelf,
		nullBoolPtr(s.Spoiler),
		nullBoolPtr(s.Pinned),
		s.Stickied,
		s.CreatedUTC,
		nullInt64Ptr(s.RetrievedOn),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryGetComment(ctx context.Context, db executor, id string) (*model.Comment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}
	return c, nil
}

func queryGetSubmission(ctx context.Context, db executor, id string) (*model.Submission, error) {
	row := db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return s, nil
}

// tableFor maps a record kind to its table. Only these two names are ever
// interpolated into SQL.
func tableFor(kind model.RecordKind) (string, error) {
	switch kind {
	case model.KindComment:
		return "comments", nil
	case model.KindSubmission:
		return "submissions", nil
	default:
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
}

func queryCountRecords(ctx context.Context, db executor, kind model.RecordKind) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
