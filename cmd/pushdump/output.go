package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// printResult prints one source's outcome as an aligned block.
func printResult(res events.IngestResult, dryRun bool) {
	status := ui.RenderOK("ok")
	if res.Error != "" {
		status = ui.RenderError("failed")
	}
	fmt.Printf("%s  %s %s\n", ui.RenderAccent(res.Source), status, ui.RenderMuted(res.Kind))

	s := res.Summary
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  lines\t%d\n", s.Lines)
	fmt.Fprintf(w, "  decoded\t%d\n", s.Decoded)
	if s.Filtered > 0 {
		fmt.Fprintf(w, "  filtered\t%d\n", s.Filtered)
	}
	if !dryRun {
		fmt.Fprintf(w, "  stored\t%d\n", s.Stored)
		fmt.Fprintf(w, "  duplicates\t%s\n", ui.RenderCount(s.Duplicates, false))
	}
	fmt.Fprintf(w, "  failed\t%s%s\n", ui.RenderCount(s.Failed, true), formatByKind(s.ByKind))
	if s.ElapsedMS > 0 {
		fmt.Fprintf(w, "  elapsed\t%s\n", (time.Duration(s.ElapsedMS) * time.Millisecond).String())
	}
	_ = w.Flush()

	if res.Error != "" {
		fmt.Printf("  %s %s\n", ui.RenderError("error:"), res.Error)
	}
}

// formatByKind renders failure counts as " (kind=n, ...)" in a stable order.
func formatByKind(byKind map[string]int) string {
	if len(byKind) == 0 {
		return ""
	}
	keys := make([]string, 0, len(byKind))
	for k := range byKind {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, byKind[k])
	}
	return ui.RenderMuted(" (" + strings.Join(parts, ", ") + ")")
}
