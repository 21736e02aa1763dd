package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loupe",
		Short: "Incremental source-tree documentation with cached explanations",
		Long: `Loupe scans a source tree, extracts functions, classes, and other
entities, and asks an LLM to explain each one. Results are cached in
.loupe/cache.json keyed by content, so unchanged entities never pay for
a second model call. Docs are written to .loupe/docs/.`,
	}

	runCmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Analyze the tree, explain changed entities, write docs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunRun,
	}
	runCmd.Flags().Bool("force", false, "Recompute every entity, ignoring the cache")
	runCmd.Flags().Bool("dry-run", false, "Decide only: no provider calls, no cache or doc writes")
	runCmd.Flags().Int("max-graph-nodes", 0, "Dependency graph node cap (0 = config default)")
	runCmd.Flags().StringSlice("include", nil, "Glob patterns to include (overrides config)")
	runCmd.Flags().StringSlice("exclude", nil, "Glob patterns to exclude (overrides config)")
	runCmd.Flags().Bool("json", false, "Print machine-readable run summary")

	statusCmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show cache freshness and what a run would recompute",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("loupe %s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, statusCmd, versionCmd)
	return rootCmd
}
