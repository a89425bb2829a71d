package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pushdump/internal/config"
	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/ui"
)

func init() {
	ui.ForceNoColor()
}

func TestKindFor(t *testing.T) {
	for _, tc := range []struct {
		src, flag string
		want      model.RecordKind
		err       bool
	}{
		{"RC_2019-05.zst", "", model.KindComment, false},
		{"s3://dumps/reddit/RS_2019-05.zst", "", model.KindSubmission, false},
		{"-", "rs", model.KindSubmission, false},
		{"RC_2019-05.zst", "submissions", model.KindSubmission, false},
		{"-", "", "", true},
		{"dump.jsonl", "posts", "", true},
	} {
		got, err := kindFor(tc.src, tc.flag)
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("kindFor(%q, %q) = %q, %v", tc.src, tc.flag, got, err)
		}
	}
}

func TestDialAddr(t *testing.T) {
	if got := dialAddr(":9090"); got != "localhost:9090" {
		t.Errorf("dialAddr(:9090) = %q", got)
	}
	if got := dialAddr("10.0.0.1:9090"); got != "10.0.0.1:9090" {
		t.Errorf("dialAddr(10.0.0.1:9090) = %q", got)
	}
}

func newDumpCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addDumpFlags(c)
	c.Flags().Int("batch-size", 0, "")
	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return c
}

func TestFilterFromFlags(t *testing.T) {
	base := model.RecordFilter{Subreddits: []string{"golang"}, After: 10}

	f := filterFromFlags(newDumpCmd(t), base)
	if f.MinScore != nil || len(f.Subreddits) != 1 || f.After != 10 {
		t.Errorf("no flags: %+v", f)
	}

	f = filterFromFlags(newDumpCmd(t, "--min-score=0", "--author=spez,kn0thing", "--before=99"), base)
	if f.MinScore == nil || *f.MinScore != 0 {
		t.Errorf("MinScore = %v, want explicit 0", f.MinScore)
	}
	if len(f.Authors) != 2 || f.Authors[1] != "kn0thing" || f.Before != 99 || f.Subreddits[0] != "golang" {
		t.Errorf("filter = %+v", f)
	}
}

func TestOptionsFromFlags(t *testing.T) {
	c := config.Default()
	c.MaxErrors = 7

	opts, err := optionsFromFlags(newDumpCmd(t), c, true)
	if err != nil {
		t.Fatalf("optionsFromFlags: %v", err)
	}
	if opts.Workers != c.Workers || opts.BatchSize != c.BatchSize || opts.MaxErrors != 7 || !opts.DryRun {
		t.Errorf("defaults = %+v", opts)
	}

	opts, err = optionsFromFlags(newDumpCmd(t, "--workers=2", "--batch-size=9", "--on-error=abort", "--max-errors=0"), c, false)
	if err != nil {
		t.Fatalf("optionsFromFlags: %v", err)
	}
	if opts.Workers != 2 || opts.BatchSize != 9 || opts.OnError != config.OnErrorAbort || opts.MaxErrors != 0 {
		t.Errorf("overrides = %+v", opts)
	}

	if _, err := optionsFromFlags(newDumpCmd(t, "--on-error=retry"), c, false); err == nil {
		t.Error("expected error for bad --on-error")
	}
}

func TestFormatByKind(t *testing.T) {
	if got := formatByKind(nil); got != "" {
		t.Errorf("empty = %q", got)
	}
	got := formatByKind(map[string]int{"schema_violation": 2, "malformed_input": 1})
	if got != " (malformed_input=1, schema_violation=2)" {
		t.Errorf("formatByKind = %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, tc := range []struct {
		subject string
		data    string
		want    string
	}{
		{events.TopicIngestStarted, `{"run_id":"run-1","source":"RC_x","kind":"comment"}`, "03:04:05 started run-1 comment RC_x"},
		{events.TopicIngestBatch, `{"run_id":"run-1","batch":3,"records":10,"stored":9,"duplicates":1}`, "03:04:05 batch run-1 #3 records=10 stored=9 duplicates=1"},
		{events.TopicIngestCompleted, `{"run_id":"run-1","source":"RC_x","summary":{"lines":5,"stored":4,"failed":1,"by_kind":{"malformed_input":1}}}`, "03:04:05 completed run-1 RC_x lines=5 stored=4 failed=1 (malformed_input=1)"},
		{events.TopicIngestFailed, `{"run_id":"run-2","source":"RS_y","error":"line 3: boom"}`, "03:04:05 failed run-2 RS_y: line 3: boom"},
		{events.TopicIngestRequest, `{"request_id":"req-1","source":"RS_y"}`, "03:04:05 requested req-1 RS_y"},
		{"pushdump.other", `{"x":1}`, `03:04:05 pushdump.other {"x":1}`},
		{events.TopicIngestStarted, `not json`, "03:04:05 pushdump.ingest.started not json"},
	} {
		got := formatEvent(now, events.Message{Subject: tc.subject, Data: []byte(tc.data)})
		if got != tc.want {
			t.Errorf("formatEvent(%s) =\n  %q\nwant\n  %q", tc.subject, got, tc.want)
		}
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "PUSHDUMP_") {
			t.Setenv(k, "")
		}
	}
}

func TestCheckCommand(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "RC_good.jsonl")
	line := `{"id":"c1","link_id":"t3_p","parent_id":"t3_p","author":"a","body":"b","subreddit":"s","created_utc":1}`
	if err := os.WriteFile(good, []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "RC_bad.jsonl")
	if err := os.WriteFile(bad, []byte(line+"\n{oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{"check", "--log-level=error", good})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("check %s: %v", good, err)
	}

	rejectsPath := filepath.Join(dir, "out", "rejects.jsonl")
	t.Setenv("PUSHDUMP_REJECTS", rejectsPath)

	rootCmd.SetArgs([]string{"check", "--log-level=error", bad})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 lines failed to decode") {
		t.Fatalf("check %s: err = %v", bad, err)
	}

	data, err := os.ReadFile(rejectsPath)
	if err != nil {
		t.Fatalf("reading rejects: %v", err)
	}
	if !strings.Contains(string(data), `"line":"{oops"`) || !strings.Contains(string(data), `"line_no":2`) {
		t.Errorf("rejects = %s", data)
	}
}
