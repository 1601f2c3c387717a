// Package check compares a scanned working copy against the collection's
// most recent recorded version and reports what drifted. It never mutates
// anything; recording the drift as a new version is the caller's call.
package check

import (
	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/checksum"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/scan"
	"github.com/geostac/geosync/internal/schema"
)

// FileStatus is the classification of one scanned file.
type FileStatus struct {
	Href      string          `json:"href"`
	Reason    checksum.Reason `json:"reason"`
	SizeBytes int64           `json:"size_bytes"`
}

// Report is the outcome of checking one collection.
type Report struct {
	Collection     string                  `json:"collection"`
	CurrentVersion string                  `json:"current_version,omitempty"`
	NextVersion    string                  `json:"next_version,omitempty"`
	Statuses       []FileStatus            `json:"statuses"`
	Missing        []string                `json:"missing,omitempty"`
	Unsupported    []string                `json:"unsupported,omitempty"`
	Breaking       []schema.BreakingChange `json:"breaking,omitempty"`
	SchemaDrift    bool                    `json:"schema_drift,omitempty"`
}

// Stale reports whether recording a new version would capture anything.
func (r *Report) Stale() bool {
	for _, s := range r.Statuses {
		if s.Reason.Stale() {
			return true
		}
	}
	return len(r.Missing) > 0 || r.SchemaDrift
}

// StaleFiles lists the hrefs whose content moved since the last version.
func (r *Report) StaleFiles() []string {
	var files []string
	for _, s := range r.Statuses {
		if s.Reason.Stale() {
			files = append(files, s.Href)
		}
	}
	return files
}

// Run classifies every scanned file of a collection against its ledger.
// The scan already carries checksums, so classification is pure table
// work with no further file reads.
func Run(col *catalog.Collection, result *scan.Result) (*Report, error) {
	l, err := col.Ledger()
	if err != nil {
		return nil, err
	}
	latest := l.Latest()

	var prevAssets map[string]*ledger.Asset
	var prevSchema *schema.Fingerprint
	if latest != nil {
		prevAssets = latest.Assets
		prevSchema = latest.Schema
	}

	live, err := col.Fingerprint(result)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Collection:     col.Name,
		CurrentVersion: l.CurrentVersion,
		Unsupported:    result.Unsupported,
		Breaking:       schema.Detect(prevSchema, live),
		SchemaDrift:    latest != nil && !prevSchema.Equal(live),
	}

	for _, entry := range result.Entries {
		state := checksum.FileState{
			Size:   entry.Size,
			Mtime:  entry.Mtime,
			SHA256: entry.SHA256,
		}
		report.Statuses = append(report.Statuses, FileStatus{
			Href:      entry.Href,
			Reason:    checksum.ClassifyState(prevAssets[entry.Href], state, prevSchema, live),
			SizeBytes: entry.Size,
		})
	}

	for _, name := range assetNames(latest) {
		if _, ok := result.Entry(prevAssets[name].Href); !ok {
			report.Missing = append(report.Missing, name)
		}
	}

	if report.Stale() {
		if next, err := ledger.NextVersion(l.CurrentVersion); err == nil {
			report.NextVersion = next
		}
	}
	return report, nil
}

func assetNames(v *ledger.Version) []string {
	if v == nil {
		return nil
	}
	return v.AssetNames()
}
