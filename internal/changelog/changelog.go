// Package changelog diffs the current entity-id set against the last
// successful snapshot. Edits surface as an add/remove pair because an edit
// churns the entity id; the "changed" bucket only fires when an id survives
// with a different recorded digest, which points at bookkeeping drift rather
// than an ordinary edit.
package changelog

import (
	"fmt"
	"sort"

	"github.com/loupe-dev/loupe/internal/cache"
)

// Record is the derived changelog for one run. It is recomputed every run
// and never persisted.
type Record struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
	Summary string   `json:"summary"`
}

// Diff compares current entity content digests (by id) against the previous
// snapshot's last successful baseline. With no usable baseline every current
// entity is reported as added.
func Diff(currentEntityHashes map[string]string, previous *cache.Snapshot) Record {
	if previous == nil || previous.LastSuccessful == nil {
		added := make([]string, 0, len(currentEntityHashes))
		for id := range currentEntityHashes {
			added = append(added, id)
		}
		sort.Strings(added)
		return Record{
			Added:   added,
			Removed: []string{},
			Changed: []string{},
			Summary: fmt.Sprintf("initial snapshot: %d entities added", len(added)),
		}
	}

	baseline := previous.LastSuccessful.EntityHashes
	added := make([]string, 0)
	changed := make([]string, 0)
	for id, digest := range currentEntityHashes {
		previousDigest, ok := baseline[id]
		switch {
		case !ok:
			added = append(added, id)
		case previousDigest != digest:
			changed = append(changed, id)
		}
	}

	removed := make([]string, 0)
	for id := range baseline {
		if _, ok := currentEntityHashes[id]; !ok {
			removed = append(removed, id)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)

	return Record{
		Added:   added,
		Removed: removed,
		Changed: changed,
		Summary: fmt.Sprintf("%d added, %d removed, %d changed", len(added), len(removed), len(changed)),
	}
}
