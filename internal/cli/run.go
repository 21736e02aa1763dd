package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/explain"
	"github.com/loupe-dev/loupe/internal/pipeline"
	"github.com/loupe-dev/loupe/internal/render"
)

func RunRun(cmd *cobra.Command, args []string) error {
	start := time.Now()

	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to read --force flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to read --dry-run flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	// Best effort: a .env beside the tree is the common place for
	// OPENAI_API_KEY.
	_ = godotenv.Load(filepath.Join(rootPath, ".env"))

	opts, err := buildOptions(cmd, rootPath, force, dryRun)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	docsWritten := 0
	if !dryRun {
		written, err := render.NewWriter(rootPath).WriteAll(result)
		if err != nil {
			return fmt.Errorf("failed to write docs: %w", err)
		}
		docsWritten = len(written)
	}

	for _, issue := range result.Issues {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", issue.File, issue.Message)
	}

	summary := RunSummary{
		Mode:        "run",
		RootPath:    rootPath,
		Model:       opts.ModelID,
		Files:       len(result.Files),
		Entities:    len(result.Docs),
		CacheHits:   result.CacheHits,
		CacheMisses: result.CacheMisses,
		Failed:      result.Failed,
		Added:       len(result.Changelog.Added),
		Removed:     len(result.Changelog.Removed),
		Changed:     len(result.Changelog.Changed),
		GraphNodes:  len(result.Graph.Nodes),
		DocsWritten: docsWritten,
		DryRun:      dryRun,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	for _, runErr := range result.Errors {
		summary.FailedEntities = append(summary.FailedEntities, runErr.EntityName)
	}

	return PrintRunSummary(summary, asJSON)
}

func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	rootPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to access path %q: %w", rootPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %q is not a directory", rootPath)
	}
	return rootPath, nil
}

// buildOptions merges config-file settings with flag overrides. Flags win
// only when set, so an empty --include does not wipe the configured globs.
func buildOptions(cmd *cobra.Command, rootPath string, force, dryRun bool) (pipeline.Options, error) {
	cfg, err := config.Load(rootPath)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Root:          rootPath,
		Include:       cfg.Include,
		Exclude:       cfg.Exclude,
		Force:         force,
		DryRun:        dryRun,
		MaxGraphNodes: cfg.MaxGraphNodes,
		Retry:         explain.DefaultRetryPolicy(),
	}

	if cmd.Flags().Changed("include") {
		if opts.Include, err = cmd.Flags().GetStringSlice("include"); err != nil {
			return pipeline.Options{}, fmt.Errorf("failed to read --include flag: %w", err)
		}
	}
	if cmd.Flags().Changed("exclude") {
		if opts.Exclude, err = cmd.Flags().GetStringSlice("exclude"); err != nil {
			return pipeline.Options{}, fmt.Errorf("failed to read --exclude flag: %w", err)
		}
	}
	if cmd.Flags().Changed("max-graph-nodes") {
		if opts.MaxGraphNodes, err = cmd.Flags().GetInt("max-graph-nodes"); err != nil {
			return pipeline.Options{}, fmt.Errorf("failed to read --max-graph-nodes flag: %w", err)
		}
	}

	if dryRun {
		opts.ModelID = explain.ResolveModel(cfg.Model)
		opts.PromptVersion = explain.CurrentPromptVersion
	} else {
		provider, err := explain.NewOpenAIProvider(cfg.Model)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Provider = provider
		opts.ModelID = provider.ModelID()
		opts.PromptVersion = provider.PromptVersion()
	}

	return opts, nil
}
