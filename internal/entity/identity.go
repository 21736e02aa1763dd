package entity

import (
	"fmt"
	"strconv"

	"github.com/loupe-dev/loupe/internal/hashing"
)

// Build assigns identities to a file's raw extracted entities. Order is
// preserved. Anonymous constructs get a synthetic name derived from their
// kind and start line so identity is stable while the construct itself is
// unchanged. Entities nested in an exported container inherit its exported
// flag. Duplicates are never dropped; two raws that are identical in every
// identity field share an id, a documented degenerate case caused by
// duplicated code.
func Build(filePath string, raws []Raw) []Entity {
	containers := containerExports(raws)

	out := make([]Entity, 0, len(raws))
	for _, raw := range raws {
		name := raw.Name
		if name == "" {
			name = SyntheticName(raw.Kind, raw.Span.StartLine)
		}

		exported := raw.Exported
		if raw.Container != "" {
			if containerExported, ok := containers[raw.Container]; ok {
				exported = containerExported
			}
		}

		out = append(out, Entity{
			ID:            ID(filePath, name, raw.Kind, raw.Span, raw.RawSource),
			FilePath:      filePath,
			Name:          name,
			Kind:          raw.Kind,
			Exported:      exported,
			Span:          raw.Span,
			Signature:     raw.Signature,
			ContentDigest: hashing.DigestString(raw.RawSource),
			RawSource:     raw.RawSource,
		})
	}
	return out
}

// ID derives the stable entity identifier.
func ID(filePath, name string, kind Kind, span Span, rawSource string) string {
	return hashing.DigestFields(
		filePath,
		name,
		string(kind),
		strconv.Itoa(span.StartLine),
		strconv.Itoa(span.EndLine),
		rawSource,
	)
}

// SyntheticName names an anonymous construct by its syntactic role.
func SyntheticName(kind Kind, startLine int) string {
	return fmt.Sprintf("%s@%d", kind, startLine)
}

// containerExports indexes the exported flag of every container-capable
// declaration in the file by name. Visibility of nested entities is governed
// by the container, not their own syntax.
func containerExports(raws []Raw) map[string]bool {
	out := make(map[string]bool)
	for _, raw := range raws {
		switch raw.Kind {
		case KindClass, KindInterface, KindType, KindEnum, KindComponent, KindModule:
			if raw.Name != "" {
				out[raw.Name] = raw.Exported
			}
		}
	}
	return out
}
