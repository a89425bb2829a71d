package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewIDs_Shape(t *testing.T) {
	for _, tc := range []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"Run", NewRunID, RunPrefix},
		{"Request", NewRequestID, RequestPrefix},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(tc.prefix) + `[a-zA-Z0-9]{10}$`)
			for i := 0; i < 100; i++ {
				id, err := tc.gen()
				if err != nil {
					t.Fatalf("error on iteration %d: %v", i, err)
				}
				if !pattern.MatchString(id) {
					t.Fatalf("id %q does not match %s", id, pattern)
				}
			}
		})
	}
}

func TestNewRunID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewRunID()
		if err != nil {
			t.Fatalf("NewRunID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	prefix := "test-"
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		t.Fatalf("GenerateWithPrefix(%q) error: %v", prefix, err)
	}
	if !strings.HasPrefix(id, prefix) {
		t.Errorf("GenerateWithPrefix(%q) = %q, want prefix %q", prefix, id, prefix)
	}
	if wantLen := len(prefix) + Length; len(id) != wantLen {
		t.Errorf("GenerateWithPrefix(%q) length = %d, want %d (id=%q)", prefix, len(id), wantLen, id)
	}
}
