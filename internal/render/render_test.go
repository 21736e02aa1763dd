package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/changelog"
	"github.com/loupe-dev/loupe/internal/decide"
	"github.com/loupe-dev/loupe/internal/depgraph"
	"github.com/loupe-dev/loupe/internal/entity"
	"github.com/loupe-dev/loupe/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Files: []pipeline.FileSummary{
			{Path: "api/server.go", Language: "go", Digest: "d1", Entities: 1},
			{Path: "main.go", Language: "go", Digest: "d2", Entities: 1},
		},
		Docs: []pipeline.EntityDoc{
			{
				Entity: entity.Entity{
					ID:       "id-serve",
					FilePath: "api/server.go",
					Name:     "Serve",
					Kind:     entity.KindFunction,
					Exported: true,
					Span:     entity.Span{StartLine: 10, EndLine: 20},
				},
				Explanation: "Starts the HTTP listener.",
				Status:      cache.StatusOK,
				Reason:      decide.ReasonCached,
			},
			{
				Entity: entity.Entity{
					ID:       "id-main",
					FilePath: "main.go",
					Name:     "main",
					Kind:     entity.KindFunction,
					Span:     entity.Span{StartLine: 1, EndLine: 5},
				},
				Status:       cache.StatusError,
				ErrorMessage: "model unavailable",
				Reason:       decide.ReasonFileChanged,
			},
		},
		Changelog: changelog.Record{
			Added:   []string{"id-serve"},
			Summary: "1 added, 0 removed, 0 changed",
		},
		Graph: &depgraph.Graph{
			Nodes: []string{"api/server.go", "main.go"},
			Edges: []depgraph.Edge{{From: "main.go", To: "api/server.go"}},
		},
		Errors: []pipeline.RunError{
			{EntityID: "id-main", EntityName: "main", FilePath: "main.go", Message: "model unavailable"},
		},
	}
}

func readDoc(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, ".loupe", DocsDir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestWriteAllProducesDocs(t *testing.T) {
	root := t.TempDir()
	written, err := NewWriter(root).WriteAll(sampleResult())
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(written) != 5 {
		t.Fatalf("written %d docs, want 5: %v", len(written), written)
	}

	index := readDoc(t, root, "index.md")
	for _, want := range []string{"2 files, 2 entities", "[api](api.md)", "[root](root.md)", "Failed explanations"} {
		if !strings.Contains(index, want) {
			t.Fatalf("index.md missing %q:\n%s", want, index)
		}
	}

	area := readDoc(t, root, "api.md")
	if !strings.Contains(area, "### Serve") || !strings.Contains(area, "Starts the HTTP listener.") {
		t.Fatalf("api.md missing entity doc:\n%s", area)
	}
	rootArea := readDoc(t, root, "root.md")
	if !strings.Contains(rootArea, "_Explanation failed: model unavailable_") {
		t.Fatalf("root.md missing failure note:\n%s", rootArea)
	}

	graph := readDoc(t, root, "graph.md")
	if !strings.Contains(graph, "```mermaid") || !strings.Contains(graph, "-->") {
		t.Fatalf("graph.md missing mermaid edges:\n%s", graph)
	}

	log := readDoc(t, root, "changelog.md")
	if !strings.Contains(log, "## Added") || !strings.Contains(log, "id-serve") {
		t.Fatalf("changelog.md missing added section:\n%s", log)
	}
}

func TestWriteAllIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writer := NewWriter(root)
	if _, err := writer.WriteAll(sampleResult()); err != nil {
		t.Fatalf("first WriteAll: %v", err)
	}
	written, err := writer.WriteAll(sampleResult())
	if err != nil {
		t.Fatalf("second WriteAll: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("second WriteAll rewrote %v, want none", written)
	}
}
