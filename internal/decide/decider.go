// Package decide holds the invalidation rules: whether an entity must be
// re-sent to the explanation provider or can be served from the snapshot.
// Everything here is a pure function of its inputs.
package decide

import (
	"github.com/loupe-dev/loupe/internal/cache"
	"github.com/loupe-dev/loupe/internal/entity"
)

// Reason explains a recompute decision, for status reporting.
type Reason string

const (
	ReasonForced        Reason = "forced"
	ReasonNoSnapshot    Reason = "no-snapshot"
	ReasonFileChanged   Reason = "file-changed"
	ReasonEntityChanged Reason = "entity-changed"
	ReasonCached        Reason = "cached"
)

// ShouldRecompute applies the invalidation rules in order: a forced run or
// missing snapshot always recomputes; a changed or unknown file hash
// invalidates every entity in the file, even ones whose own span bytes are
// identical, because span-relative extraction can shift; otherwise only an
// entity whose recorded content digest differs recomputes. New ids always
// recompute since they have no prior record.
func ShouldRecompute(e entity.Entity, currentFileHashes map[string]string, previous *cache.Snapshot, force bool) bool {
	recompute, _ := Decide(e, currentFileHashes, previous, force)
	return recompute
}

// Decide is ShouldRecompute with the reason attached.
func Decide(e entity.Entity, currentFileHashes map[string]string, previous *cache.Snapshot, force bool) (bool, Reason) {
	if force {
		return true, ReasonForced
	}
	if previous == nil {
		return true, ReasonNoSnapshot
	}

	previousFileHash, ok := previous.FileHashes[e.FilePath]
	if !ok || previousFileHash != currentFileHashes[e.FilePath] {
		return true, ReasonFileChanged
	}

	previousDigest, ok := previous.EntityHashes[e.ID]
	if !ok || previousDigest != e.ContentDigest {
		return true, ReasonEntityChanged
	}
	return false, ReasonCached
}
