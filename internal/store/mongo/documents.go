package mongo

import "github.com/alfredjeanlab/pushdump/internal/model"

// commentDocument is the stored form of a model.Comment.
type commentDocument struct {
	ID         string `bson:"_id,omitempty"`
	LinkID     string `bson:"link_id"`
	ParentType uint8  `bson:"parent_type"`
	ParentID   string `bson:"parent_id"`
	Author     string `bson:"author"`
	Body       string `bson:"body"`
	Subreddit  string `bson:"subreddit"`

	AuthorFlairText     *string `bson:"author_flair_text,omitempty"`
	AuthorFlairCSSClass *string `bson:"author_flair_css_class,omitempty"`
	Distinguished       *string `bson:"distinguished,omitempty"`
	Score               *int32  `bson:"score,omitempty"`
	Ups                 *int32  `bson:"ups,omitempty"`
	Downs               *int32  `bson:"downs,omitempty"`
	Controversiality    *int32  `bson:"controversiality,omitempty"`
	Permalink           *string `bson:"permalink,omitempty"`

	CreatedUTC  int64  `bson:"created_utc"`
	RetrievedOn *int64 `bson:"retrieved_on,omitempty"`

	ParentIsPost bool `bson:"parent_is_post"`
	Stickied     bool `bson:"stickied"`
	IsSubmitter  bool `bson:"is_submitter"`
	Archived     bool `bson:"archived"`
}

// submissionDocument is the stored form of a model.Submission. BSON has no
// unsigned integers, so num_crossposts is widened to int64.
type submissionDocument struct {
	ID        string `bson:"_id,omitempty"`
	Permalink string `bson:"permalink"`
	Title     string `bson:"title"`
	Selftext  string `bson:"selftext"`

	URL             *string `bson:"url,omitempty"`
	Domain          *string `bson:"domain,omitempty"`
	Subreddit       *string `bson:"subreddit,omitempty"`
	SubredditID     *string `bson:"subreddit_id,omitempty"`
	Author          *string `bson:"author,omitempty"`
	AuthorFlairText *string `bson:"author_flair_text,omitempty"`
	LinkFlairText   *string `bson:"link_flair_text,omitempty"`

	Score         *int32 `bson:"score,omitempty"`
	Ups           *int32 `bson:"ups,omitempty"`
	Downs         *int32 `bson:"downs,omitempty"`
	NumComments   int32  `bson:"num_comments"`
	NumCrossposts *int64 `bson:"num_crossposts,omitempty"`

	Over18   bool  `bson:"over_18"`
	IsSelf   bool  `bson:"is_self"`
	Spoiler  *bool `bson:"spoiler,omitempty"`
	Pinned   *bool `bson:"pinned,omitempty"`
	Stickied bool  `bson:"stickied"`

	CreatedUTC  int64  `bson:"created_utc"`
	RetrievedOn *int64 `bson:"retrieved_on,omitempty"`
}

func toCommentDocument(c *model.Comment) commentDocument {
	return commentDocument{
		ID:                  c.ID,
		LinkID:              c.LinkID,
		ParentType:          c.ParentID.Type,
		ParentID:            c.ParentID.ID,
		Author:              c.Author,
		Body:                c.Body,
		Subreddit:           c.Subreddit,
		AuthorFlairText:     c.AuthorFlairText,
		AuthorFlairCSSClass: c.AuthorFlairCSSClass,
		Distinguished:       c.Distinguished,
		Score:               c.Score,
		Ups:                 c.Ups,
		Downs:               c.Downs,
		Controversiality:    c.Controversiality,
		Permalink:           c.Permalink,
		CreatedUTC:          c.CreatedUTC,
		RetrievedOn:         c.RetrievedOn,
		ParentIsPost:        c.ParentIsPost,
		Stickied:            c.Stickied,
		IsSubmitter:         c.IsSubmitter,
		Archived:            c.Archived,
	}
}

func (d *commentDocument) toModel() *model.Comment {
	return &model.Comment{
		ID:                  d.ID,
		LinkID:              d.LinkID,
		ParentID:            model.ParentID{Type: d.ParentType, ID: d.ParentID},
		Author:              d.Author,
		Body:                d.Body,
		Subreddit:           d.Subreddit,
		AuthorFlairText:     d.AuthorFlairText,
		AuthorFlairCSSClass: d.AuthorFlairCSSClass,
		Distinguished:       d.Distinguished,
		Score:               d.Score,
		Ups:                 d.Ups,
		Downs:               d.Downs,
		Controversiality:    d.Controversiality,
		Permalink:           d.Permalink,
		CreatedUTC:          d.CreatedUTC,
		RetrievedOn:         d.RetrievedOn,
		ParentIsPost:        d.ParentIsPost,
		Stickied:            d.Stickied,
		IsSubmitter:         d.IsSubmitter,
		Archived:            d.Archived,
	}
}

func toSubmissionDocument(s *model.Submission) submissionDocument {
	doc := submissionDocument{
		ID:              s.ID,
		Permalink:       s.Permalink,
		Title:           s.Title,
		Selftext:        s.Selftext,
		URL:             s.URL,
		Domain:          s.Domain,
		Subreddit:       s.Subreddit,
		SubredditID:     s.SubredditID,
		Author:          s.Author,
		AuthorFlairText: s.AuthorFlairText,
		LinkFlairText:   s.LinkFlairText,
		Score:           s.Score,
		Ups:             s.Ups,
		Downs:           s.Downs,
		NumComments:     s.NumComments,
		Over18:          s.Over18,
		IsSelf:          s.IsSelf,
		Spoiler:         s.Spoiler,
		Pinned:          s.Pinned,
		Stickied:        s.Stickied,
		CreatedUTC:      s.CreatedUTC,
		RetrievedOn:     s.RetrievedOn,
	}
	if s.NumCrossposts != nil {
		n := int64(*s.NumCrossposts)
		doc.NumCrossposts = &n
	}
	return doc
}

func (d *submissionDocument) toModel() *model.Submission {
	s := &model.Submission{
		ID:              d.ID,
		Permalink:       d.Permalink,
		Title:           d.Title,
		Selftext:        d.Selftext,
		URL:             d.URL,
		Domain:          d.Domain,
		Subreddit:       d.Subreddit,
		SubredditID:     d.SubredditID,
		Author:          d.Author,
		AuthorFlairText: d.AuthorFlairText,
		LinkFlairText:   d.LinkFlairText,
		Score:           d.Score,
		Ups:             d.Ups,
		Downs:           d.Downs,
		NumComments:     d.NumComments,
		Over18:          d.Over18,
		IsSelf:          d.IsSelf,
		Spoiler:         d.Spoiler,
		Pinned:          d.Pinned,
		Stickied:        d.Stickied,
		CreatedUTC:      d.CreatedUTC,
		RetrievedOn:     d.RetrievedOn,
	}
	if d.NumCrossposts != nil {
		n := uint32(*d.NumCrossposts)
		s.NumCrossposts = &n
	}
	return s
}
