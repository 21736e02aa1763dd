// Package depgraph turns per-file import edges into a size-bounded graph.
// Truncation keeps the first maxNodes files in the caller-supplied order
// rather than ranking by importance; callers pass a stable (lexicographic)
// order so output is reproducible across runs on an unchanged file set.
package depgraph

import "sort"

// Edge is one import relationship between two in-tree files.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the derived dependency graph. Never persisted.
type Graph struct {
	Nodes            []string `json:"nodes"`
	Edges            []Edge   `json:"edges"`
	Truncated        bool     `json:"truncated"`
	OmittedNodeCount int      `json:"omitted_node_count"`
}

// Build assembles the graph. With more files than maxNodes the first
// maxNodes survive and edges are filtered to those whose both endpoints
// survive; OmittedNodeCount reports the exact difference. maxNodes <= 0
// means unbounded.
func Build(filePaths []string, edges []Edge, maxNodes int) *Graph {
	nodes := append([]string(nil), filePaths...)
	truncated := false
	omitted := 0
	if maxNodes > 0 && len(nodes) > maxNodes {
		omitted = len(nodes) - maxNodes
		nodes = nodes[:maxNodes]
		truncated = true
	}

	kept := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		kept[node] = true
	}

	seen := make(map[Edge]bool, len(edges))
	outEdges := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		if !kept[edge.From] || !kept[edge.To] {
			continue
		}
		if edge.From == edge.To || seen[edge] {
			continue
		}
		seen[edge] = true
		outEdges = append(outEdges, edge)
	}

	sort.Slice(outEdges, func(i, j int) bool {
		if outEdges[i].From == outEdges[j].From {
			return outEdges[i].To < outEdges[j].To
		}
		return outEdges[i].From < outEdges[j].From
	})

	return &Graph{
		Nodes:            nodes,
		Edges:            outEdges,
		Truncated:        truncated,
		OmittedNodeCount: omitted,
	}
}
