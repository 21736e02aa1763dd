// Package pipeline runs one full analysis pass: discover files, extract and
// identify entities, decide what the explanation provider must recompute,
// and persist the new cache snapshot. The cache is threaded through the run
// as a value: read once here, written once at the end, never mutated in
// between, so the decider and changelog stay pure functions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/changelog"
	"github.com/loupe-dev/loupe/internal/decide"
	"github.com/loupe-dev/loupe/internal/depgraph"
	"github.com/loupe-dev/loupe/internal/entity"
	"github.com/loupe-dev/loupe/internal/explain"
	"github.com/loupe-dev/loupe/internal/extract"
	"github.com/loupe-dev/loupe/internal/pathmatch"
)

const sourceCacheSize = 256

// Options configures one run.
type Options struct {
	Root          string
	Include       []string
	Exclude       []string
	Force         bool
	DryRun        bool
	MaxGraphNodes int

	// Provider may be nil only for a dry run. ModelID and PromptVersion
	// always drive cache-key derivation so a dry run predicts the same
	// decisions a real run would make.
	Provider      explain.Provider
	Retry         explain.RetryPolicy
	ModelID       string
	PromptVersion string
}

// Issue is a non-fatal per-file problem (extractor failure, unsupported
// file).
type Issue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// EntityDoc pairs an entity with its explanation outcome for this run.
type EntityDoc struct {
	Entity       entity.Entity `json:"entity"`
	Explanation  string        `json:"explanation,omitempty"`
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CacheHit     bool          `json:"cache_hit"`
	Reason       decide.Reason `json:"reason"`
}

// FileSummary describes one analyzed file for the presentation layer.
type FileSummary struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Digest   string `json:"digest"`
	Entities int    `json:"entities"`
}

// RunError is one isolated provider failure, surfaced in the run summary.
type RunError struct {
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	FilePath   string `json:"file_path"`
	Message    string `json:"message"`
}

// Result is everything a run produces, handed to the presentation layer as
// plain data.
type Result struct {
	RootPath    string
	Files       []FileSummary
	Docs        []EntityDoc
	Changelog   changelog.Record
	Graph       *depgraph.Graph
	Issues      []Issue
	Errors      []RunError
	CacheHits   int
	CacheMisses int
	Failed      int
	Snapshot    *cache.Snapshot
}

// Run executes the pipeline. Discovery, extraction, and cache-write
// failures are fatal; per-entity provider failures are recorded and do not
// abort the run.
func Run(ctx context.Context, opts Options) (*Result, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", opts.Root, err)
	}
	if opts.Provider == nil && !opts.DryRun {
		return nil, fmt.Errorf("explanation provider is required outside dry runs")
	}

	sources := newSourceCache(sourceCacheSize)
	records, err := pathmatch.MatchWithReader(root, opts.Include, opts.Exclude, sources.Read)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	previous := cache.Read(cache.SnapshotPath(root))
	if previous == nil {
		slog.Debug("no usable cache snapshot, treating as first run", "root", root)
	}

	registry := extract.NewDefaultRegistry()
	result := &Result{RootPath: root}

	fileHashes := make(map[string]string, len(records))
	entityHashes := make(map[string]string)
	orderedIDs := make([]string, 0)
	seenIDs := make(map[string]bool)
	extracted := make([]*extract.File, 0, len(records))
	entities := make([]entity.Entity, 0)
	fileLanguage := make(map[string]string)
	fileImports := make(map[string][]string)

	for _, record := range records {
		fileHashes[record.Path] = record.Digest

		extractor, ok := registry.ForFile(record.Path)
		if !ok {
			result.Issues = append(result.Issues, Issue{File: record.Path, Message: "no extractor for file type"})
			result.Files = append(result.Files, FileSummary{Path: record.Path, Digest: record.Digest})
			continue
		}

		content, err := sources.Read(filepath.Join(root, filepath.FromSlash(record.Path)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", record.Path, err)
		}
		file, err := extractor.Extract(record.Path, content)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", record.Path, err)
		}

		built := entity.Build(record.Path, file.Entities)
		entities = append(entities, built...)
		for _, e := range built {
			entityHashes[e.ID] = e.ContentDigest
			if !seenIDs[e.ID] {
				seenIDs[e.ID] = true
				orderedIDs = append(orderedIDs, e.ID)
			}
		}

		extracted = append(extracted, file)
		fileLanguage[record.Path] = file.Language
		fileImports[record.Path] = file.Imports
		result.Files = append(result.Files, FileSummary{
			Path:     record.Path,
			Language: file.Language,
			Digest:   record.Digest,
			Entities: len(built),
		})
	}

	newResults := make(map[string]cache.ExternalResult)
	merged := cache.MergeResults(previous, nil)

	for _, e := range entities {
		key := cache.Key(e.ContentDigest, opts.ModelID, opts.PromptVersion)
		recompute, reason := decide.Decide(e, fileHashes, previous, opts.Force)

		if !recompute {
			if cached, ok := merged[key]; ok {
				result.CacheHits++
				result.Docs = append(result.Docs, EntityDoc{
					Entity:       e,
					Explanation:  cached.Text,
					Status:       cached.Status,
					ErrorMessage: cached.ErrorMessage,
					CacheHit:     true,
					Reason:       reason,
				})
				continue
			}
			// Hashes match but the key has no result, e.g. the model or
			// prompt version moved. Fall through to recompute.
			reason = decide.ReasonEntityChanged
		}
		result.CacheMisses++

		if opts.DryRun {
			result.Docs = append(result.Docs, EntityDoc{Entity: e, Status: "pending", Reason: reason})
			continue
		}

		doc := explainEntity(ctx, opts, e, fileLanguage[e.FilePath], fileImports[e.FilePath])
		doc.Reason = reason
		if doc.Status == cache.StatusError {
			result.Failed++
			result.Errors = append(result.Errors, RunError{
				EntityID:   e.ID,
				EntityName: e.Name,
				FilePath:   e.FilePath,
				Message:    doc.ErrorMessage,
			})
		}
		newResults[key] = cache.ExternalResult{
			Text:         doc.Explanation,
			Status:       doc.Status,
			ErrorMessage: doc.ErrorMessage,
		}
		result.Docs = append(result.Docs, doc)
	}

	if !opts.DryRun {
		snapshot, err := cache.Write(
			cache.SnapshotPath(root),
			fileHashes,
			entityHashes,
			cache.MergeResults(previous, newResults),
			orderedIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to write cache snapshot: %w", err)
		}
		result.Snapshot = snapshot
	}

	result.Changelog = changelog.Diff(entityHashes, previous)

	filePaths := make([]string, 0, len(result.Files))
	for _, summary := range result.Files {
		filePaths = append(filePaths, summary.Path)
	}
	result.Graph = depgraph.Build(filePaths, resolveEdges(extracted, filePaths), opts.MaxGraphNodes)

	return result, nil
}

// explainEntity performs one provider call under the retry policy. Failures
// are converted into an error-status doc, never an error return.
func explainEntity(ctx context.Context, opts Options, e entity.Entity, language string, imports []string) EntityDoc {
	input := explain.EntityInput{
		Name:      e.Name,
		Kind:      string(e.Kind),
		Signature: e.Signature,
		FilePath:  e.FilePath,
		Language:  language,
		StartLine: e.Span.StartLine,
		EndLine:   e.Span.EndLine,
		Source:    e.RawSource,
		Imports:   imports,
	}

	var text string
	err := opts.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = opts.Provider.Explain(ctx, input)
		return callErr
	})
	if err != nil {
		slog.Warn("explanation failed", "entity", e.Name, "file", e.FilePath, "error", err)
		return EntityDoc{
			Entity:       e,
			Status:       cache.StatusError,
			ErrorMessage: err.Error(),
		}
	}

	return EntityDoc{Entity: e, Explanation: text, Status: cache.StatusOK}
}
