package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

const dumpBody = "{\"id\":\"a\"}\n{\"id\":\"b\"}\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func zstdBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(s)); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

func xzBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

func TestOpen_Compression(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		opts Options
	}{
		{"RC_2023-01.zst", zstdBytes(t, dumpBody), Options{}},
		{"RS_2023-01.xz", xzBytes(t, dumpBody), Options{}},
		{"RC_2023-01.ndjson", []byte(dumpBody), Options{}},
		{"RC_2023-01", zstdBytes(t, dumpBody), Options{Compression: "zst"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, tc.name, tc.data)
			rc, err := Open(context.Background(), p, tc.opts)
			if err != nil {
				t.Fatalf("Open error: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != dumpBody {
				t.Errorf("contents = %q, want %q", got, dumpBody)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.zst"), Options{}); err == nil {
		t.Error("expected error for a missing file")
	}
	p := writeFile(t, "RC_bad.xz", []byte("not xz at all"))
	if _, err := Open(context.Background(), p, Options{}); err == nil {
		t.Error("expected error for a corrupt xz header")
	}
	p = writeFile(t, "RC_plain", []byte(dumpBody))
	if _, err := Open(context.Background(), p, Options{Compression: "lz4"}); err == nil {
		t.Error("expected error for an unknown compression")
	}
	if _, err := Open(context.Background(), "s3://bucket-only", Options{}); err == nil {
		t.Error("expected error for an s3 url without a key")
	}
}

func TestLines(t *testing.T) {
	in := "first\r\n\n   \nsecond\nthird"
	type seen struct {
		no   int
		line string
	}
	var got []seen
	err := Lines(strings.NewReader(in), func(no int, line string) error {
		got = append(got, seen{no, line})
		return nil
	})
	if err != nil {
		t.Fatalf("Lines error: %v", err)
	}
	want := []seen{{1, "first"}, {4, "second"}, {5, "third"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLines_LongLine(t *testing.T) {
	long := strings.Repeat("x", 3*readBufferSize)
	var n int
	err := Lines(strings.NewReader(long+"\nshort\n"), func(_ int, line string) error {
		n++
		if n == 1 && len(line) != len(long) {
			t.Errorf("long line length = %d, want %d", len(line), len(long))
		}
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("Lines = (%d lines, %v), want 2 lines", n, err)
	}
}

func TestLines_CallbackErrors(t *testing.T) {
	in := "a\nb\nc\n"
	var n int
	if err := Lines(strings.NewReader(in), func(int, string) error {
		n++
		return ErrStop
	}); err != nil || n != 1 {
		t.Errorf("ErrStop: (%d, %v), want (1, nil)", n, err)
	}

	boom := errors.New("boom")
	if err := Lines(strings.NewReader(in), func(int, string) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestKindFromName(t *testing.T) {
	for _, tc := range []struct {
		name   string
		want   model.RecordKind
		wantOK bool
	}{
		{"RC_2023-01.zst", model.KindComment, true},
		{"/data/reddit/rs_2019-12.xz", model.KindSubmission, true},
		{"s3://dumps/AskHistorians_comments.zst", model.KindComment, true},
		{"wallstreetbets_submissions", model.KindSubmission, true},
		{"RA_2023-01.zst", "", false},
		{"-", "", false},
	} {
		got, ok := KindFromName(tc.name)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("KindFromName(%q) = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}
