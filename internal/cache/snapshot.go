package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/loupe-dev/loupe/internal/hashing"
)

const (
	// Dir is the tool's directory under the analyzed tree.
	Dir          = ".loupe"
	SnapshotFile = "cache.json"

	CurrentVersion = "1"

	StatusOK    = "ok"
	StatusError = "error"
)

// ExternalResult is one cached explanation, keyed by Key(contentDigest,
// model, promptVersion). Failed calls are cached too, so a repeated run
// without --force does not immediately retry a call likely to fail again.
type ExternalResult struct {
	Text         string `json:"text"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Baseline is the entity view of the last completed run, the reference
// point for changelog diffs.
type Baseline struct {
	EntityHashes map[string]string `json:"entity_hashes"`
	EntityIDs    []string          `json:"entity_ids"`
}

// Snapshot is the full persisted cache state as of the end of one run.
// It is read once at run start and rebuilt wholesale at run end; nothing
// mutates it in between.
type Snapshot struct {
	Version         string                    `json:"version"`
	SnapshotDigest  string                    `json:"snapshot_digest"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	FileHashes      map[string]string         `json:"file_hashes"`
	EntityHashes    map[string]string         `json:"entity_hashes"`
	ExternalResults map[string]ExternalResult `json:"external_results"`
	LastSuccessful  *Baseline                 `json:"last_successful_snapshot,omitempty"`
}

// Key derives the cache key for an external result. Switching provider
// model or prompt version invalidates results without a source change.
func Key(contentDigest, providerModelID, promptVersion string) string {
	return hashing.DigestFields(contentDigest, providerModelID, promptVersion)
}

// SnapshotPath returns the snapshot location under root.
func SnapshotPath(root string) string {
	return filepath.Join(root, Dir, SnapshotFile)
}

// Read loads a snapshot. A missing, unreadable, or corrupt file is treated
// as absent (first-run behavior), never as a fatal error.
func Read(path string) *Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil
	}
	if snapshot.Version != CurrentVersion {
		return nil
	}
	if snapshot.FileHashes == nil || snapshot.EntityHashes == nil {
		return nil
	}
	if snapshot.ExternalResults == nil {
		snapshot.ExternalResults = make(map[string]ExternalResult)
	}
	return &snapshot
}

// Write rebuilds and persists the snapshot, setting the last successful
// baseline to this run's entities. The write is a whole-file replace;
// concurrent writers are not supported and must be serialized by the caller.
func Write(
	path string,
	fileHashes map[string]string,
	entityHashes map[string]string,
	results map[string]ExternalResult,
	orderedEntityIDs []string,
) (*Snapshot, error) {
	snapshot := &Snapshot{
		Version:         CurrentVersion,
		GeneratedAt:     time.Now().UTC(),
		FileHashes:      cloneStringMap(fileHashes),
		EntityHashes:    cloneStringMap(entityHashes),
		ExternalResults: cloneResultMap(results),
		LastSuccessful: &Baseline{
			EntityHashes: cloneStringMap(entityHashes),
			EntityIDs:    append([]string(nil), orderedEntityIDs...),
		},
	}
	snapshot.SnapshotDigest = snapshot.contentDigest()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return snapshot, nil
}

// MergeResults carries previous results forward and overlays this run's.
// Old entries are preserved so reverting a file to a prior version can hit
// a previously computed result as long as the cache key matches exactly.
func MergeResults(previous *Snapshot, current map[string]ExternalResult) map[string]ExternalResult {
	merged := make(map[string]ExternalResult)
	if previous != nil {
		for key, result := range previous.ExternalResults {
			merged[key] = result
		}
	}
	for key, result := range current {
		merged[key] = result
	}
	return merged
}

// contentDigest hashes the snapshot's durable contents in an explicitly
// sorted order so the digest is independent of map iteration.
func (s *Snapshot) contentDigest() string {
	var b strings.Builder
	b.WriteString("files\n")
	for _, key := range sortedKeys(s.FileHashes) {
		fmt.Fprintf(&b, "%s=%s\n", key, s.FileHashes[key])
	}
	b.WriteString("entities\n")
	for _, key := range sortedKeys(s.EntityHashes) {
		fmt.Fprintf(&b, "%s=%s\n", key, s.EntityHashes[key])
	}
	b.WriteString("results\n")
	resultKeys := make([]string, 0, len(s.ExternalResults))
	for key := range s.ExternalResults {
		resultKeys = append(resultKeys, key)
	}
	sort.Strings(resultKeys)
	for _, key := range resultKeys {
		result := s.ExternalResults[key]
		fmt.Fprintf(&b, "%s=%s|%s|%s\n", key, result.Status, result.Text, result.ErrorMessage)
	}
	if s.LastSuccessful != nil {
		b.WriteString("baseline\n")
		for _, id := range s.LastSuccessful.EntityIDs {
			fmt.Fprintf(&b, "%s=%s\n", id, s.LastSuccessful.EntityHashes[id])
		}
	}
	return hashing.DigestString(b.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

func cloneResultMap(m map[string]ExternalResult) map[string]ExternalResult {
	out := make(map[string]ExternalResult, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}
