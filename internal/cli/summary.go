package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

type RunSummary struct {
	Mode           string   `json:"mode"`
	RootPath       string   `json:"root_path"`
	Model          string   `json:"model"`
	Files          int      `json:"files"`
	Entities       int      `json:"entities"`
	CacheHits      int      `json:"cache_hits"`
	CacheMisses    int      `json:"cache_misses"`
	Failed         int      `json:"failed"`
	Added          int      `json:"added"`
	Removed        int      `json:"removed"`
	Changed        int      `json:"changed"`
	GraphNodes     int      `json:"graph_nodes"`
	DocsWritten    int      `json:"docs_written"`
	DryRun         bool     `json:"dry_run"`
	DurationMS     int64    `json:"duration_ms"`
	FailedEntities []string `json:"failed_entities,omitempty"`
}

type StatusSummary struct {
	Mode          string         `json:"mode"`
	RootPath      string         `json:"root_path"`
	Model         string         `json:"model"`
	Files         int            `json:"files"`
	Entities      int            `json:"entities"`
	Fresh         int            `json:"fresh"`
	Stale         int            `json:"stale"`
	ByReason      map[string]int `json:"by_reason,omitempty"`
	HasCache      bool           `json:"has_cache"`
	DurationMS    int64          `json:"duration_ms"`
	StaleEntities []string       `json:"stale_entities,omitempty"`
}

func PrintRunSummary(summary RunSummary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	mode := summary.Mode
	if summary.DryRun {
		mode = "run (dry-run)"
	}
	fmt.Printf("%s complete in %dms\n", mode, summary.DurationMS)
	fmt.Printf("model: %s\n", summary.Model)
	fmt.Printf("files: %d entities: %d\n", summary.Files, summary.Entities)
	fmt.Printf("cache: hits=%d misses=%d failed=%d\n", summary.CacheHits, summary.CacheMisses, summary.Failed)
	fmt.Printf("changelog: added=%d removed=%d changed=%d\n", summary.Added, summary.Removed, summary.Changed)
	fmt.Printf("graph: %d nodes\n", summary.GraphNodes)
	if !summary.DryRun {
		fmt.Printf("docs rewritten: %d\n", summary.DocsWritten)
	}
	if len(summary.FailedEntities) > 0 {
		fmt.Printf("failed entities (%d): %s\n", len(summary.FailedEntities), SummarizePaths(summary.FailedEntities, 8))
	}
	return nil
}

func PrintStatusSummary(summary StatusSummary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	if !summary.HasCache {
		fmt.Println("no cache snapshot: next run recomputes everything")
	}
	fmt.Printf("status: files=%d entities=%d fresh=%d stale=%d duration=%dms\n",
		summary.Files, summary.Entities, summary.Fresh, summary.Stale, summary.DurationMS)

	reasons := make([]string, 0, len(summary.ByReason))
	for reason := range summary.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("  %s: %d\n", reason, summary.ByReason[reason])
	}
	if len(summary.StaleEntities) > 0 {
		fmt.Printf("stale entities (%d): %s\n", len(summary.StaleEntities), SummarizePaths(summary.StaleEntities, 8))
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
