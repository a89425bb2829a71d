package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var commentRowColumns = []string{
	"id", "link_id", "parent_type", "parent_id", "author", "body", "subreddit",
	"author_flair_text", "author_flair_css_class", "distinguished", "score", "ups", "downs",
	"controversiality", "permalink", "created_utc", "retrieved_on",
	"parent_is_post", "stickied", "is_submitter", "archived",
}

var submissionRowColumns = []string{
	"id", "permalink", "title", "selftext", "url", "domain", "subreddit",
	"subreddit_id", "author", "author_flair_text", "link_flair_text", "score", "ups", "downs",
	"num_comments", "num_crossposts", "over_18", "is_self", "spoiler", "pinned", "stickied",
	"created_utc", "retrieved_on",
}

func strp(s string) *string { return &s }
func i32p(v int32) *int32   { return &v }
func i64p(v int64) *int64   { return &v }

func testComment() *model.Comment {
	return &model.Comment{
		ID: "abc123", LinkID: "t3_xyz",
		ParentID: model.ParentID{Type: model.ParentComment, ID: "def456"},
		Author:   "spez", Body: "hello", Subreddit: "announcements",
		Distinguished: strp("admin"), Score: i32p(42),
		CreatedUTC: 1700000000, RetrievedOn: i64p(1700000100),
		Stickied: true,
	}
}

func testSubmission() *model.Submission {
	n := uint32(2)
	spoiler := false
	return &model.Submission{
		ID: "xyz", Permalink: "/r/pics/comments/xyz/a/", Title: "A title",
		Author: strp("kn0thing"), Subreddit: strp("pics"), Score: i32p(7),
		NumComments: 3, NumCrossposts: &n, Spoiler: &spoiler,
		CreatedUTC: 1700000000,
	}
}

func TestQueryInsertComment(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO comments .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(
			"abc123", "t3_xyz", 1, "def456", "spez", "hello", "announcements",
			nil, nil, "admin", 42, nil, nil,
			nil, nil, 1700000000, 1700000100,
			false, true, false, false,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := queryInsertComment(context.Background(), db, testComment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestQueryInsertComment_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO comments").WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := queryInsertComment(context.Background(), db, testComment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 for an existing id", n)
	}
}

func TestQueryInsertComment_Error(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO comments").WillReturnError(boom)

	if _, err := queryInsertComment(context.Background(), db, testComment()); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestQueryInsertSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO submissions .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(
			"xyz", "/r/pics/comments/xyz/a/", "A title", "", nil, nil, "pics",
			nil, "kn0thing", nil, nil, 7, nil, nil,
			3, 2, false, false, false, nil, false,
			1700000000, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := queryInsertSubmission(context.Background(), db, testSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestQueryInsert_StripsNUL(t *testing.T) {
	db, mock := newMockDB(t)

	c := testComment()
	c.Body = "a\x00b\x00"
	c.AuthorFlairText = strp("\x00flair")
	mock.ExpectExec("INSERT INTO comments").
		WithArgs(
			"abc123", "t3_xyz", 1, "def456", "spez", "ab", "announcements",
			"flair", nil, "admin", 42, nil, nil,
			nil, nil, 1700000000, 1700000100,
			false, true, false, false,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if _, err := queryInsertComment(context.Background(), db, c); err != nil {
		t.Fatalf("comment insert: %v", err)
	}

	s := testSubmission()
	s.Title = "A\x00 title"
	s.Selftext = "\x00\x00"
	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(
			"xyz", "/r/pics/comments/xyz/a/", "A title", "", nil, nil, "pics",
			nil, "kn0thing", nil, nil, 7, nil, nil,
			3, 2, false, false, false, nil, false,
			1700000000, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if _, err := queryInsertSubmission(context.Background(), db, s); err != nil {
		t.Fatalf("submission insert: %v", err)
	}
}

func TestCleanText(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"", ""},
		{"plain", "plain"},
		{"\x00", ""},
		{"a\x00b", "ab"},
		{"\x00\x00x\x00", "x"},
	} {
		if got := cleanText(tc.in); got != tc.want {
			t.Errorf("cleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQueryGetComment(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows(commentRowColumns).AddRow(
		"abc123", "t3_xyz", 1, "def456", "spez", "hello", "announcements",
		nil, nil, "admin", 42, nil, nil,
		nil, nil, 1700000000, 1700000100,
		false, true, false, false,
	)
	mock.ExpectQuery("SELECT .+ FROM comments WHERE id = \\$1").WithArgs("abc123").WillReturnRows(rows)

	c, err := queryGetComment(context.Background(), db, "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := testComment()
	if c.ID != want.ID || c.ParentID != want.ParentID || c.Author != want.Author || c.CreatedUTC != want.CreatedUTC {
		t.Errorf("got %+v, want %+v", c, want)
	}
	if c.Score == nil || *c.Score != 42 || c.Ups != nil {
		t.Errorf("Score=%v Ups=%v, want 42 and nil", c.Score, c.Ups)
	}
	if c.Distinguished == nil || *c.Distinguished != "admin" || c.AuthorFlairText != nil {
		t.Errorf("Distinguished=%v AuthorFlairText=%v", c.Distinguished, c.AuthorFlairText)
	}
	if c.RetrievedOn == nil || *c.RetrievedOn != 1700000100 || !c.Stickied {
		t.Errorf("RetrievedOn=%v Stickied=%v", c.RetrievedOn, c.Stickied)
	}
}

func TestQueryGetSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows(submissionRowColumns).AddRow(
		"xyz", "/r/pics/comments/xyz/a/", "A title", "", nil, nil, "pics",
		nil, "kn0thing", nil, nil, 7, nil, nil,
		3, 2, false, false, false, nil, false,
		1700000000, nil,
	)
	mock.ExpectQuery("SELECT .+ FROM submissions WHERE id = \\$1").WithArgs("xyz").WillReturnRows(rows)

	s, err := queryGetSubmission(context.Background(), db, "xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "xyz" || s.Title != "A title" || s.NumComments != 3 {
		t.Errorf("got %+v", s)
	}
	if s.NumCrossposts == nil || *s.NumCrossposts != 2 {
		t.Errorf("NumCrossposts = %v, want 2", s.NumCrossposts)
	}
	if s.Spoiler == nil || *s.Spoiler || s.Pinned != nil {
		t.Errorf("Spoiler=%v Pinned=%v, want false and nil", s.Spoiler, s.Pinned)
	}
	if s.Author == nil || *s.Author != "kn0thing" || s.URL != nil {
		t.Errorf("Author=%v URL=%v", s.Author, s.URL)
	}
}

func TestQueryGet_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM comments WHERE id = \\$1").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(commentRowColumns))
	mock.ExpectQuery("SELECT .+ FROM submissions WHERE id = \\$1").WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := queryGetComment(context.Background(), db, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("comment: expected store.ErrNotFound, got %v", err)
	}
	if _, err := queryGetSubmission(context.Background(), db, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("submission: expected store.ErrNotFound, got %v", err)
	}
}

func TestQueryCountRecords(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM comments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM submissions").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	for _, tc := range []struct {
		kind model.RecordKind
		want int64
	}{
		{model.KindComment, 12},
		{model.KindSubmission, 3},
	} {
		n, err := queryCountRecords(context.Background(), db, tc.kind)
		if err != nil {
			t.Fatalf("CountRecords(%s) error: %v", tc.kind, err)
		}
		if n != tc.want {
			t.Errorf("CountRecords(%s) = %d, want %d", tc.kind, n, tc.want)
		}
	}

	if _, err := queryCountRecords(context.Background(), db, "wiki"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO comments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO submissions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var stored int64
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		for _, r := range []model.Storable{testComment(), testSubmission()} {
			n, err := r.Store(context.Background(), tx)
			if err != nil {
				return err
			}
			stored += n
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored = %d, want 1", stored)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO comments").WillReturnError(boom)
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		_, err := tx.InsertComment(context.Background(), testComment())
		return err
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestTxStore_NestedTransactionReusesTx(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO comments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.RunInTransaction(context.Background(), func(inner store.Store) error {
			_, err := inner.InsertComment(context.Background(), testComment())
			return err
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScanHelpers(t *testing.T) {
	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	if ns := nullStringPtr(strp("")); !ns.Valid || ns.String != "" {
		t.Errorf("nullStringPtr(\"\") = %v, want valid empty string", ns)
	}
	if nullInt32Ptr(nil).Valid || nullInt64Ptr(nil).Valid || nullUint32Ptr(nil).Valid || nullBoolPtr(nil).Valid {
		t.Error("nil pointers should map to invalid nulls")
	}
	big := uint32(4000000000)
	if n := nullUint32Ptr(&big); !n.Valid || n.Int64 != 4000000000 {
		t.Errorf("nullUint32Ptr(4e9) = %v", n)
	}
	if stringPtr(sql.NullString{}) != nil || int32Ptr(sql.NullInt32{}) != nil ||
		int64Ptr(sql.NullInt64{}) != nil || boolPtr(sql.NullBool{}) != nil {
		t.Error("invalid nulls should map to nil pointers")
	}
}
