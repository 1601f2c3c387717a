package ledger

import (
	"math"
	"time"
)

// Asset is one tracked file at a specific recorded version. Entries are
// created when a version is recorded and never mutated afterward; a changed
// file produces a new Asset in a new Version.
type Asset struct {
	Name        string   `json:"name"`
	SHA256      string   `json:"sha256"`
	SizeBytes   int64    `json:"size_bytes"`
	Href        string   `json:"href"`
	SourcePath  string   `json:"source_path,omitempty"`
	SourceMtime *float64 `json:"source_mtime,omitempty"`
	Mtime       *float64 `json:"mtime,omitempty"`
}

// ModTime returns the recorded modification time, if any.
func (a *Asset) ModTime() (time.Time, bool) {
	if a.Mtime == nil {
		return time.Time{}, false
	}
	return UnixToTime(*a.Mtime), true
}

func (a *Asset) Equal(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Name == other.Name &&
		a.SHA256 == other.SHA256 &&
		a.SizeBytes == other.SizeBytes &&
		a.Href == other.Href &&
		a.SourcePath == other.SourcePath &&
		floatPtrEqual(a.SourceMtime, other.SourceMtime) &&
		floatPtrEqual(a.Mtime, other.Mtime)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TimeToUnix converts a time to fractional Unix seconds, the on-disk mtime
// representation. Float64 keeps sub-microsecond precision at current epochs,
// well inside the millisecond comparison tolerance.
func TimeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// UnixToTime is the inverse of TimeToUnix.
func UnixToTime(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

// MtimePtr is a convenience for building Asset literals.
func MtimePtr(t time.Time) *float64 {
	v := TimeToUnix(t)
	return &v
}
