// Package render turns a pipeline result into the markdown docs under
// .loupe/docs. It is a pure consumer of run output: nothing here reads
// source files or the cache.
package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/fileutil"
	"github.com/loupe-dev/loupe/internal/pipeline"
)

const DocsDir = "docs"

// Writer publishes docs for one tree.
type Writer struct {
	docsPath string
}

func NewWriter(root string) *Writer {
	return &Writer{docsPath: filepath.Join(root, cache.Dir, DocsDir)}
}

// WriteAll writes the index, per-area entity listings, the changelog, and
// the dependency graph. Files whose rendered content is unchanged are left
// untouched; the returned list names the docs that were actually rewritten.
func (w *Writer) WriteAll(result *pipeline.Result) ([]string, error) {
	written := make([]string, 0)

	areas := groupByArea(result.Docs)
	areaNames := make([]string, 0, len(areas))
	for name := range areas {
		areaNames = append(areaNames, name)
	}
	sort.Strings(areaNames)

	for _, name := range areaNames {
		path := filepath.Join(w.docsPath, name+".md")
		changed, err := fileutil.WriteIfChangedTracked(path, []byte(renderArea(name, areas[name])))
		if err != nil {
			return written, fmt.Errorf("failed to write area doc %s: %w", name, err)
		}
		if changed {
			written = append(written, path)
		}
	}

	pages := []struct {
		name    string
		content string
	}{
		{"index.md", renderIndex(result, areaNames)},
		{"changelog.md", renderChangelog(result)},
		{"graph.md", renderGraph(result)},
	}
	for _, page := range pages {
		path := filepath.Join(w.docsPath, page.name)
		changed, err := fileutil.WriteIfChangedTracked(path, []byte(page.content))
		if err != nil {
			return written, fmt.Errorf("failed to write %s: %w", page.name, err)
		}
		if changed {
			written = append(written, path)
		}
	}

	return written, nil
}

// groupByArea buckets entity docs by the top-level directory of their file.
// Files at the tree root fall into the "root" area.
func groupByArea(docs []pipeline.EntityDoc) map[string][]pipeline.EntityDoc {
	areas := make(map[string][]pipeline.EntityDoc)
	for _, doc := range docs {
		areas[areaOf(doc.Entity.FilePath)] = append(areas[areaOf(doc.Entity.FilePath)], doc)
	}
	return areas
}

func areaOf(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return "root"
}

func renderIndex(result *pipeline.Result, areaNames []string) string {
	var b strings.Builder
	b.WriteString("# Codebase docs\n\n")
	fmt.Fprintf(&b, "%d files, %d entities.\n\n", len(result.Files), len(result.Docs))

	if len(areaNames) > 0 {
		b.WriteString("## Areas\n\n")
		for _, name := range areaNames {
			fmt.Fprintf(&b, "- [%s](%s.md)\n", name, name)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Files\n\n")
	b.WriteString("| File | Language | Entities |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, file := range result.Files {
		language := file.Language
		if language == "" {
			language = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %d |\n", file.Path, language, file.Entities)
	}

	if len(result.Issues) > 0 {
		b.WriteString("\n## Issues\n\n")
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "- `%s`: %s\n", issue.File, issue.Message)
		}
	}
	if len(result.Errors) > 0 {
		b.WriteString("\n## Failed explanations\n\n")
		for _, runErr := range result.Errors {
			fmt.Fprintf(&b, "- %s (`%s`): %s\n", runErr.EntityName, runErr.FilePath, runErr.Message)
		}
	}

	return fileutil.EnsureTrailingNewline(b.String())
}

func renderArea(name string, docs []pipeline.EntityDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", name)

	currentFile := ""
	for _, doc := range docs {
		if doc.Entity.FilePath != currentFile {
			currentFile = doc.Entity.FilePath
			fmt.Fprintf(&b, "\n## %s\n", currentFile)
		}

		fmt.Fprintf(&b, "\n### %s\n\n", doc.Entity.Name)
		fmt.Fprintf(&b, "%s, lines %d-%d", doc.Entity.Kind, doc.Entity.Span.StartLine, doc.Entity.Span.EndLine)
		if doc.Entity.Exported {
			b.WriteString(", exported")
		}
		b.WriteString("\n")
		if doc.Entity.Signature != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", doc.Entity.Signature)
		}

		switch doc.Status {
		case cache.StatusOK:
			fmt.Fprintf(&b, "\n%s\n", doc.Explanation)
		case cache.StatusError:
			fmt.Fprintf(&b, "\n_Explanation failed: %s_\n", doc.ErrorMessage)
		default:
			b.WriteString("\n_Explanation pending._\n")
		}
	}

	return fileutil.EnsureTrailingNewline(b.String())
}

func renderChangelog(result *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("# Changelog\n\n")
	fmt.Fprintf(&b, "%s\n", result.Changelog.Summary)

	sections := []struct {
		title string
		ids   []string
	}{
		{"Added", result.Changelog.Added},
		{"Removed", result.Changelog.Removed},
		{"Changed", result.Changelog.Changed},
	}
	for _, section := range sections {
		if len(section.ids) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", section.title)
		for _, id := range section.ids {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}

	return fileutil.EnsureTrailingNewline(b.String())
}

func renderGraph(result *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("# Dependency graph\n\n")

	graph := result.Graph
	if graph == nil || len(graph.Nodes) == 0 {
		b.WriteString("No files in graph.\n")
		return b.String()
	}

	if graph.Truncated {
		fmt.Fprintf(&b, "Showing %d files; %d omitted to keep the graph readable.\n\n",
			len(graph.Nodes), graph.OmittedNodeCount)
	}

	// Stable node ids keep the Mermaid text byte-identical across runs.
	ids := make(map[string]string, len(graph.Nodes))
	b.WriteString("```mermaid\nflowchart LR\n")
	for i, node := range graph.Nodes {
		id := fmt.Sprintf("n%d", i)
		ids[node] = id
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, node)
	}
	for _, edge := range graph.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", ids[edge.From], ids[edge.To])
	}
	b.WriteString("```\n")

	return b.String()
}
