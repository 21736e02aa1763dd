package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/explain"
)

type fakeProvider struct {
	calls    int
	perName  map[string]int
	failFor  map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{perName: map[string]int{}, failFor: map[string]bool{}}
}

func (p *fakeProvider) Explain(_ context.Context, input explain.EntityInput) (string, error) {
	p.calls++
	p.perName[input.Name]++
	if p.failFor[input.Name] {
		return "", fmt.Errorf("model unavailable")
	}
	return "explains " + input.Name, nil
}

func (p *fakeProvider) ModelID() string       { return "fake-model" }
func (p *fakeProvider) PromptVersion() string { return "prompt-v1" }

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func testOptions(root string, provider explain.Provider) Options {
	opts := Options{
		Root:          root,
		Include:       []string{"**/*.go"},
		MaxGraphNodes: 100,
		Provider:      provider,
		Retry:         explain.RetryPolicy{Attempts: 1},
	}
	if provider != nil {
		opts.ModelID = provider.ModelID()
		opts.PromptVersion = provider.PromptVersion()
	}
	return opts
}

const greetSrc = `package demo

func Greet(name string) string {
	return "hello " + name
}
`

const mathSrc = `package demo

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`

func TestRunUnchangedSecondRunHitsCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)
	writeSource(t, root, "math.go", mathSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)

	first, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheHits != 0 {
		t.Fatalf("first run cache hits = %d, want 0", first.CacheHits)
	}
	if provider.calls != 3 {
		t.Fatalf("first run provider calls = %d, want 3", provider.calls)
	}
	if len(first.Changelog.Added) != 3 || len(first.Changelog.Removed) != 0 || len(first.Changelog.Changed) != 0 {
		t.Fatalf("first run changelog = %+v, want 3 added only", first.Changelog)
	}
	if first.Snapshot == nil {
		t.Fatal("first run wrote no snapshot")
	}

	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("second run made provider calls, total = %d", provider.calls)
	}
	if second.CacheHits != 3 || second.CacheMisses != 0 {
		t.Fatalf("second run hits/misses = %d/%d, want 3/0", second.CacheHits, second.CacheMisses)
	}
	if len(second.Changelog.Added)+len(second.Changelog.Removed)+len(second.Changelog.Changed) != 0 {
		t.Fatalf("second run changelog not empty: %+v", second.Changelog)
	}
	for _, doc := range second.Docs {
		if !doc.CacheHit || doc.Status != cache.StatusOK {
			t.Fatalf("doc %s: hit=%v status=%s", doc.Entity.Name, doc.CacheHit, doc.Status)
		}
		if doc.Explanation != "explains "+doc.Entity.Name {
			t.Fatalf("doc %s lost cached text: %q", doc.Entity.Name, doc.Explanation)
		}
	}
}

func TestRunFileChangeRecomputesWholeFile(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)
	writeSource(t, root, "math.go", mathSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Append a new function. Add and Sub are byte-identical but their file
	// hash changed, so they recompute along with Mul.
	writeSource(t, root, "math.go", mathSrc+`
func Mul(a, b int) int {
	return a * b
}
`)

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if provider.perName["Greet"] != 1 {
		t.Fatalf("Greet recomputed, calls = %d", provider.perName["Greet"])
	}
	for _, name := range []string{"Add", "Sub", "Mul"} {
		want := 2
		if name == "Mul" {
			want = 1
		}
		if provider.perName[name] != want {
			t.Fatalf("%s provider calls = %d, want %d", name, provider.perName[name], want)
		}
	}
	if len(result.Changelog.Changed) != 0 {
		t.Fatalf("byte-identical entities reported as changed: %v", result.Changelog.Changed)
	}
	if len(result.Changelog.Added) != 1 {
		t.Fatalf("changelog added = %v, want only the new entity", result.Changelog.Added)
	}
}

func TestRunRenameChurnsIdentity(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	writeSource(t, root, "greet.go", strings.ReplaceAll(greetSrc, "Greet", "Salute"))
	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(result.Changelog.Added) != 1 || len(result.Changelog.Removed) != 1 {
		t.Fatalf("rename changelog = %+v, want one added and one removed", result.Changelog)
	}
	if len(result.Changelog.Changed) != 0 {
		t.Fatalf("rename reported as changed: %v", result.Changelog.Changed)
	}
}

func TestRunProviderFailureIsIsolatedAndCached(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "math.go", mathSrc)

	provider := newFakeProvider()
	provider.failFor["Add"] = true
	opts := testOptions(root, provider)

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run should not abort on provider failure: %v", err)
	}
	if result.Failed != 1 || len(result.Errors) != 1 {
		t.Fatalf("failed=%d errors=%d, want 1/1", result.Failed, len(result.Errors))
	}
	if result.Errors[0].EntityName != "Add" {
		t.Fatalf("error attributed to %s, want Add", result.Errors[0].EntityName)
	}

	okCount := 0
	for _, doc := range result.Docs {
		switch doc.Entity.Name {
		case "Add":
			if doc.Status != cache.StatusError || doc.ErrorMessage == "" {
				t.Fatalf("Add doc: %+v", doc)
			}
		default:
			if doc.Status != cache.StatusOK {
				t.Fatalf("%s doc status = %s", doc.Entity.Name, doc.Status)
			}
			okCount++
		}
	}
	if okCount != 1 {
		t.Fatalf("ok docs = %d, want 1", okCount)
	}

	errorResults := 0
	for _, cached := range result.Snapshot.ExternalResults {
		if cached.Status == cache.StatusError {
			errorResults++
		}
	}
	if errorResults != 1 {
		t.Fatalf("cached error results = %d, want 1", errorResults)
	}

	// The cached error is a valid result. Without force, the failed entity
	// is not retried on the next run.
	provider.failFor["Add"] = false
	second, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if provider.perName["Add"] != 1 {
		t.Fatalf("Add retried without force, calls = %d", provider.perName["Add"])
	}
	if second.CacheHits != 2 {
		t.Fatalf("second run cache hits = %d, want 2", second.CacheHits)
	}
}

func TestRunForceRecomputesEverything(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "math.go", mathSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	opts.Force = true
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if provider.calls != 4 {
		t.Fatalf("provider calls = %d, want 4", provider.calls)
	}
}

func TestRunModelSwitchInvalidatesResults(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	opts.ModelID = "other-model"
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want recompute after model switch", provider.calls)
	}
}

func TestRunDryRunMakesNoCallsAndNoWrites(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)

	opts := testOptions(root, nil)
	opts.DryRun = true
	opts.ModelID = "fake-model"
	opts.PromptVersion = "prompt-v1"

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Snapshot != nil {
		t.Fatal("dry run produced a snapshot")
	}
	if _, err := os.Stat(cache.SnapshotPath(root)); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote cache file, stat err = %v", err)
	}
	for _, doc := range result.Docs {
		if doc.Status != "pending" {
			t.Fatalf("dry run doc status = %s", doc.Status)
		}
	}
}

func TestRunReportsUnsupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)
	writeSource(t, root, "notes.txt", "free text\n")

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	opts.Include = []string{"**/*"}
	opts.Exclude = []string{".loupe/**"}

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].File != "notes.txt" {
		t.Fatalf("issues = %+v, want one for notes.txt", result.Issues)
	}
	if len(result.Files) != 2 {
		t.Fatalf("files = %d, want the unsupported file listed too", len(result.Files))
	}
}

func TestRunCorruptSnapshotRegenerates(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "greet.go", greetSrc)

	provider := newFakeProvider()
	opts := testOptions(root, provider)
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.WriteFile(cache.SnapshotPath(root), []byte("{not json"), 0644); err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("run after corruption: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want full recompute after corruption", provider.calls)
	}
	if len(result.Changelog.Added) != 1 {
		t.Fatalf("changelog after corruption = %+v, want full re-add", result.Changelog)
	}
}
