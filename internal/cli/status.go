package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/decide"
	"github.com/loupe-dev/loupe/internal/pipeline"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()

	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	opts, err := buildOptions(cmd, rootPath, false, true)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	summary := StatusSummary{
		Mode:       "status",
		RootPath:   rootPath,
		Model:      opts.ModelID,
		Files:      len(result.Files),
		Entities:   len(result.Docs),
		Stale:      result.CacheMisses,
		Fresh:      result.CacheHits,
		ByReason:   countReasons(result.Docs),
		HasCache:   cacheExists(rootPath),
		DurationMS: time.Since(start).Milliseconds(),
	}
	for _, doc := range result.Docs {
		if doc.Reason != decide.ReasonCached {
			summary.StaleEntities = append(summary.StaleEntities, doc.Entity.Name)
		}
	}

	return PrintStatusSummary(summary, asJSON)
}

// countReasons tallies recompute decisions for the status report.
func countReasons(docs []pipeline.EntityDoc) map[string]int {
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[string(doc.Reason)]++
	}
	return counts
}

func cacheExists(rootPath string) bool {
	_, err := os.Stat(cache.SnapshotPath(rootPath))
	return err == nil
}
