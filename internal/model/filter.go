package model

import "strings"

// RecordFilter selects records through the Filterable view. Zero-valued
// criteria are ignored.
type RecordFilter struct {
	MinScore   *int32   `json:"min_score,omitempty" toml:"min_score"`
	Authors    []string `json:"authors,omitempty" toml:"authors"`       // case-insensitive
	Subreddits []string `json:"subreddits,omitempty" toml:"subreddits"` // case-insensitive
	After      int64    `json:"after,omitempty" toml:"after"`           // created >= After
	Before     int64    `json:"before,omitempty" toml:"before"`         // created < Before
}

// IsZero reports whether the filter accepts every record.
func (f RecordFilter) IsZero() bool {
	return f.MinScore == nil && len(f.Authors) == 0 && len(f.Subreddits) == 0 &&
		f.After == 0 && f.Before == 0
}

// Match reports whether r satisfies every criterion. A record that lacks a
// field a criterion needs does not match.
func (f RecordFilter) Match(r Filterable) bool {
	if f.MinScore != nil {
		score := r.GetScore()
		if score == nil || *score < *f.MinScore {
			return false
		}
	}
	if len(f.Authors) > 0 && !containsFold(f.Authors, r.GetAuthor()) {
		return false
	}
	if len(f.Subreddits) > 0 && !containsFold(f.Subreddits, r.GetSubreddit()) {
		return false
	}

	created := r.GetCreated()
	if f.After != 0 && created < f.After {
		return false
	}
	if f.Before != 0 && created >= f.Before {
		return false
	}
	return true
}

// Filter returns the records in rs that match f, preserving order.
func Filter[T Filterable](rs []T, f RecordFilter) []T {
	if f.IsZero() {
		return rs
	}
	var out []T
	for _, r := range rs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(set []string, v *string) bool {
	if v == nil {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(s, *v) {
			return true
		}
	}
	return false
}
