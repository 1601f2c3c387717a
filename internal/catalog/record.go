package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/scan"
	"github.com/geostac/geosync/internal/schema"
)

// Fingerprint loads the collection's schema sidecar. When the conversion
// tooling has not produced one, the format family of the scanned files
// serves as a minimal stand-in so kind changes are still caught.
func (c *Collection) Fingerprint(result *scan.Result) (*schema.Fingerprint, error) {
	fp, err := schema.ReadFile(c.SchemaPath)
	if err == nil {
		return fp, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, entry := range result.Entries {
		if kind, ok := schema.KindForPath(entry.Href); ok {
			return &schema.Fingerprint{Kind: kind}, nil
		}
	}
	return nil, nil
}

// RecordVersion appends a new version built from a scan of the collection
// and publishes the updated ledger. Reports ErrNoChanges when neither the
// files nor the schema moved since the last recorded version.
func (c *Collection) RecordVersion(result *scan.Result, message string) (*ledger.Ledger, *ledger.Version, error) {
	l, err := c.Ledger()
	if err != nil {
		return nil, nil, err
	}
	prev := l.Latest()

	var prevAssets map[string]*ledger.Asset
	var prevSchema *schema.Fingerprint
	if prev != nil {
		prevAssets = prev.Assets
		prevSchema = prev.Schema
	}

	live, err := c.Fingerprint(result)
	if err != nil {
		return nil, nil, err
	}

	assets := make(map[string]*ledger.Asset, len(result.Entries))
	var changes []string
	for _, entry := range result.Entries {
		mtime := entry.Mtime
		assets[entry.Href] = &ledger.Asset{
			Name:      entry.Href,
			SHA256:    entry.SHA256,
			SizeBytes: entry.Size,
			Href:      entry.Href,
			Mtime:     &mtime,
		}
		old, tracked := prevAssets[entry.Href]
		if !tracked || old.SHA256 != entry.SHA256 {
			changes = append(changes, entry.Href)
		}
	}
	for name := range prevAssets {
		if _, still := assets[name]; !still {
			changes = append(changes, name)
		}
	}
	sort.Strings(changes)

	schemaMoved := prev != nil && !prevSchema.Equal(live)
	if len(changes) == 0 && !schemaMoved && prev != nil {
		return nil, nil, fmt.Errorf("%w: %s at %s", ErrNoChanges, c.Name, l.CurrentVersion)
	}
	if len(result.Entries) == 0 && prev == nil {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrNoChanges, c.Name)
	}

	version, err := ledger.NextVersion(l.CurrentVersion)
	if err != nil {
		return nil, nil, err
	}

	entry := &ledger.Version{
		Version:  version,
		Created:  time.Now().UTC(),
		Breaking: schema.IsBreaking(prevSchema, live),
		Schema:   live,
		Assets:   assets,
		Changes:  changes,
		Message:  message,
	}
	next, err := l.AddVersion(entry)
	if err != nil {
		return nil, nil, err
	}
	if err := ledger.Write(c.LedgerPath, next); err != nil {
		return nil, nil, err
	}

	slog.Info("recorded version",
		"collection", c.Name,
		"version", version,
		"breaking", entry.Breaking,
		"changes", len(changes),
	)
	return next, entry, nil
}
