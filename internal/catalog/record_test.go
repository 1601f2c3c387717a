package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostac/geosync/internal/scan"
)

func writeCollectionFile(t *testing.T, c *Collection, name, content string) {
	t.Helper()
	path := filepath.Join(c.Dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scanCollection(t *testing.T, c *Collection) *scan.Result {
	t.Helper()
	s := &scan.Scanner{}
	result, err := s.Scan(context.Background(), c.Dir)
	require.NoError(t, err)
	return result
}

func TestRecordVersionFirst(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "data.parquet", "parquet v1")

	l, entry, err := c.RecordVersion(scanCollection(t, c), "initial import")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", l.CurrentVersion)
	assert.Equal(t, "1.0.0", entry.Version)
	assert.False(t, entry.Breaking)
	assert.Equal(t, []string{"data.parquet"}, entry.Changes)
	assert.Equal(t, "initial import", entry.Message)

	asset, ok := entry.Asset("data.parquet")
	require.True(t, ok)
	assert.Len(t, asset.SHA256, 64)
	assert.Equal(t, int64(len("parquet v1")), asset.SizeBytes)
	require.NotNil(t, asset.Mtime)

	// fingerprint falls back to the format family without a sidecar
	require.NotNil(t, entry.Schema)
	assert.Equal(t, "vector", string(entry.Schema.Kind))

	// persisted
	onDisk, err := c.Ledger()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", onDisk.CurrentVersion)
}

func TestRecordVersionPatchBump(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "data.parquet", "parquet v1")

	_, _, err = c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)

	writeCollectionFile(t, c, "data.parquet", "parquet v2 bytes")
	l, entry, err := c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", l.CurrentVersion)
	assert.Equal(t, []string{"data.parquet"}, entry.Changes)
	require.Len(t, l.Versions, 2)
}

func TestRecordVersionNoChanges(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "data.parquet", "parquet v1")

	_, _, err = c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)

	_, _, err = c.RecordVersion(scanCollection(t, c), "")
	assert.ErrorIs(t, err, ErrNoChanges)

	// empty collection with no history has nothing to record either
	empty, err := w.InitCollection("empty")
	require.NoError(t, err)
	_, _, err = empty.RecordVersion(scanCollection(t, empty), "")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestRecordVersionRemovalTracked(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "a.parquet", "aaa")
	writeCollectionFile(t, c, "b.parquet", "bbb")

	_, _, err = c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(c.Dir, "b.parquet")))
	l, entry, err := c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)

	assert.Equal(t, "1.0.1", l.CurrentVersion)
	assert.Equal(t, []string{"b.parquet"}, entry.Changes)
	_, stillTracked := entry.Asset("b.parquet")
	assert.False(t, stillTracked)
	_, kept := entry.Asset("a.parquet")
	assert.True(t, kept)
}

func TestRecordVersionBreakingSchemaChange(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "data.parquet", "parquet v1")
	writeCollectionFile(t, c, SchemaFilename, `{
		"kind": "vector",
		"crs": "EPSG:4326",
		"columns": [
			{"name": "id", "type": "string", "nullable": false},
			{"name": "height", "type": "double", "nullable": true}
		]
	}`)

	_, entry, err := c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)
	assert.False(t, entry.Breaking)

	// dropping a column is a breaking change, but the bump stays a patch
	writeCollectionFile(t, c, "data.parquet", "parquet v2")
	writeCollectionFile(t, c, SchemaFilename, `{
		"kind": "vector",
		"crs": "EPSG:4326",
		"columns": [
			{"name": "id", "type": "string", "nullable": false}
		]
	}`)

	l, entry, err := c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)
	assert.True(t, entry.Breaking)
	assert.Equal(t, "1.0.1", l.CurrentVersion)
}

func TestRecordVersionSchemaOnlyChange(t *testing.T) {
	w := newTestWorkspace(t)
	c, err := w.InitCollection("buildings")
	require.NoError(t, err)
	writeCollectionFile(t, c, "data.parquet", "stable bytes")
	writeCollectionFile(t, c, SchemaFilename, `{"kind": "vector", "crs": "EPSG:4326"}`)

	_, _, err = c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)

	// only the sidecar moves; a new version is still recorded
	writeCollectionFile(t, c, SchemaFilename, `{"kind": "vector", "crs": "EPSG:3857"}`)
	l, entry, err := c.RecordVersion(scanCollection(t, c), "")
	require.NoError(t, err)
	assert.True(t, entry.Breaking)
	assert.Empty(t, entry.Changes)
	assert.Equal(t, "1.0.1", l.CurrentVersion)
}
