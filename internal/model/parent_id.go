package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known parent discriminants.
const (
	ParentComment uint8 = 1
	ParentLink    uint8 = 3
)

// ParentID is the decoded form of a comment's parent_id fullname such as
// "t1_abc123": the digit of the type marker and the bare base id.
type ParentID struct {
	Type uint8  `json:"parent_type"`
	ID   string `json:"parent_id"`
}

// ParseParentID decodes a composite parent reference. A nil source fails
// with ErrNullParentID; a source without an underscore, with a marker
// shorter than two characters, or whose marker's second character is not
// an ASCII digit fails with ErrInvalidParentID.
func ParseParentID(src *string) (ParentID, error) {
	if src == nil {
		return ParentID{}, ErrNullParentID
	}
	parent := *src

	marker, id, ok := strings.Cut(parent, "_")
	if !ok {
		return ParentID{}, fmt.Errorf("%w: %q", ErrInvalidParentID, parent)
	}
	// The marker is measured in characters, not bytes.
	runes := []rune(marker)
	if len(runes) < 2 || runes[1] < '0' || runes[1] > '9' {
		return ParentID{}, fmt.Errorf("%w: %q", ErrInvalidParentID, parent)
	}

	return ParentID{Type: uint8(runes[1] - '0'), ID: id}, nil
}

// IsComment reports whether the parent is another comment.
func (p ParentID) IsComment() bool {
	return p.Type == ParentComment
}

// IsLink reports whether the parent is the submission itself.
func (p ParentID) IsLink() bool {
	return p.Type == ParentLink
}

// String reassembles the fullname, e.g. "t3_xyz".
func (p ParentID) String() string {
	return "t" + strconv.Itoa(int(p.Type)) + "_" + p.ID
}
