package checksum

import (
	"os"

	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/schema"
)

// Reason classifies the state of one tracked file against its most recent
// recorded version. Each call is a fresh classification of a (stored, live)
// pair; there is no state machine.
type Reason string

const (
	NewFile          Reason = "new_file"
	MtimeUnchanged   Reason = "mtime_unchanged"
	TouchedUnchanged Reason = "touched_unchanged"
	ContentChanged   Reason = "content_changed"
	SchemaChanged    Reason = "schema_changed"
)

// Stale reports whether the classification requires recording a new version.
func (r Reason) Stale() bool {
	switch r {
	case NewFile, ContentChanged, SchemaChanged:
		return true
	}
	return false
}

// FileState is the live observation of one file.
type FileState struct {
	Size   int64
	Mtime  float64
	SHA256 string
}

// ClassifyState is the staleness decision table over already-observed
// values. stored is the asset entry from the latest recorded version, nil
// for an untracked file. storedSchema and liveSchema are the collection
// fingerprints at record time and now; either may be nil when no sidecar
// exists.
func ClassifyState(stored *ledger.Asset, live FileState, storedSchema, liveSchema *schema.Fingerprint) Reason {
	if stored == nil {
		return NewFile
	}
	if stored.Mtime != nil && live.Size == stored.SizeBytes && MtimeEqual(*stored.Mtime, live.Mtime) {
		return MtimeUnchanged
	}
	if live.SHA256 != stored.SHA256 {
		return ContentChanged
	}
	if storedSchema != nil && liveSchema != nil && !storedSchema.Equal(liveSchema) {
		return SchemaChanged
	}
	return TouchedUnchanged
}

// IsCurrent reports whether the file at path still matches the recorded
// asset. Fast path: if size matches and the live mtime is within tolerance
// of the recorded one, the file is current without hashing. Slow path:
// recompute the checksum. The checksum is the source of truth; the fast
// path only skips work, it never flips the answer.
func IsCurrent(path string, a *ledger.Asset) (bool, error) {
	if a == nil {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if a.Mtime != nil && info.Size() == a.SizeBytes && MtimeEqual(*a.Mtime, ledger.TimeToUnix(info.ModTime())) {
		return true, nil
	}
	sum, err := File(path)
	if err != nil {
		return false, err
	}
	return sum == a.SHA256, nil
}

// Classify observes the file at path and runs the decision table, hashing
// only when the mtime fast path misses.
func Classify(path string, stored *ledger.Asset, storedSchema, liveSchema *schema.Fingerprint) (Reason, error) {
	if stored == nil {
		return NewFile, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	live := FileState{Size: info.Size(), Mtime: ledger.TimeToUnix(info.ModTime())}
	if stored.Mtime != nil && live.Size == stored.SizeBytes && MtimeEqual(*stored.Mtime, live.Mtime) {
		return MtimeUnchanged, nil
	}

	live.SHA256, err = File(path)
	if err != nil {
		return "", err
	}
	return ClassifyState(stored, live, storedSchema, liveSchema), nil
}
