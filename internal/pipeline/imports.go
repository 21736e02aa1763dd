package pipeline

import (
	"path"
	"strings"

	"github.com/loupe-dev/loupe/internal/depgraph"
	"github.com/loupe-dev/loupe/internal/extract"
)

// resolveEdges maps each file's import targets to in-tree files. Targets
// that resolve to nothing (stdlib, third-party) produce no edge.
func resolveEdges(files []*extract.File, allPaths []string) []depgraph.Edge {
	edges := make([]depgraph.Edge, 0)
	for _, file := range files {
		for _, target := range file.Imports {
			for _, candidate := range allPaths {
				if candidate == file.Path {
					continue
				}
				if importMatchesFile(file.Path, target, candidate) {
					edges = append(edges, depgraph.Edge{From: file.Path, To: candidate})
				}
			}
		}
	}
	return edges
}

// importMatchesFile decides whether an import target names targetFile.
// Relative targets resolve against the importing file; absolute ones match
// by path suffix against the file with and without extension, its
// directory, and its base name. Python dotted modules are normalized to
// slashes first.
func importMatchesFile(sourceFile, target, targetFile string) bool {
	target = strings.TrimSpace(strings.Trim(target, `"'`))
	if target == "" {
		return false
	}
	if !strings.Contains(target, "/") && strings.Contains(target, ".") && !strings.HasPrefix(target, ".") {
		target = strings.ReplaceAll(target, ".", "/")
	}

	noExt := strings.TrimSuffix(targetFile, path.Ext(targetFile))
	dir := path.Dir(targetFile)
	base := strings.TrimSuffix(path.Base(targetFile), path.Ext(targetFile))

	if strings.HasPrefix(target, ".") {
		resolved := path.Clean(path.Join(path.Dir(sourceFile), target))
		return resolved == noExt || resolved == dir
	}

	target = strings.TrimPrefix(target, "/")
	return target == noExt ||
		target == dir ||
		target == base ||
		strings.HasSuffix(target, "/"+noExt) ||
		strings.HasSuffix(target, "/"+dir) ||
		strings.HasSuffix(target, "/"+base)
}
