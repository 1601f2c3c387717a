package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostac/geosync/internal/checksum"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIsDataFile(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"data.parquet", true},
		{"tiles/dem.tif", true},
		{"dem.TIFF", true},
		{"boundaries.fgb", true},
		{"points.geojson", true},
		{"raw.shp", false},
		{"notes.txt", false},
		{"archive.zip", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDataFile(tt.href), tt.href)
	}
}

func TestScanFindsDataFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.parquet", "parquet bytes")
	writeFile(t, dir, "tiles/dem.tif", "raster bytes")
	writeFile(t, dir, "raw.shp", "legacy format")
	writeFile(t, dir, "versions.json", `{"spec_version":"1.0.0","versions":[]}`)
	writeFile(t, dir, ".hidden.parquet", "hidden")
	writeFile(t, dir, "schema.json", `{"kind":"vector"}`)

	s := &Scanner{}
	result, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "data.parquet", result.Entries[0].Href)
	assert.Equal(t, "tiles/dem.tif", result.Entries[1].Href)
	assert.Equal(t, []string{"raw.shp"}, result.Unsupported)

	want, err := checksum.File(filepath.Join(dir, "data.parquet"))
	require.NoError(t, err)
	assert.Equal(t, want, result.Entries[0].SHA256)
	assert.Equal(t, int64(len("parquet bytes")), result.Entries[0].Size)
	assert.NotZero(t, result.Entries[0].Mtime)

	entry, ok := result.Entry("tiles/dem.tif")
	require.True(t, ok)
	assert.NotEmpty(t, entry.SHA256)
	_, ok = result.Entry("nope.parquet")
	assert.False(t, ok)
}

func TestScanHonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.parquet", "keep")
	writeFile(t, dir, "staging/drop.parquet", "drop")
	writeFile(t, dir, IgnoreFilename, "staging/\n")

	s := &Scanner{}
	result, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "keep.parquet", result.Entries[0].Href)
}

func TestScanUsesChecksumCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.parquet", "cached content")

	cache := NewChecksumCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, cache.Open())
	defer cache.Close()

	s := &Scanner{Cache: cache}
	first, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// a matching (size, mtime) row is trusted as-is
	info, err := os.Stat(path)
	require.NoError(t, err)
	sentinel := "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	require.NoError(t, cache.Store(path, info.Size(), info.ModTime().UnixNano(), sentinel))

	second, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, sentinel, second.Entries[0].SHA256)

	// touching the file invalidates the row
	later := info.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, first.Entries[0].SHA256, third.Entries[0].SHA256)
}

func TestCacheLookupMissAndForget(t *testing.T) {
	cache := NewChecksumCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, cache.Open())
	defer cache.Close()

	_, ok := cache.Lookup("/nope", 1, 1)
	assert.False(t, ok)

	require.NoError(t, cache.Store("/some/file", 10, 42, "abc123"))
	sha, ok := cache.Lookup("/some/file", 10, 42)
	require.True(t, ok)
	assert.Equal(t, "abc123", sha)

	_, ok = cache.Lookup("/some/file", 11, 42)
	assert.False(t, ok)

	require.NoError(t, cache.Forget("/some/file"))
	_, ok = cache.Lookup("/some/file", 10, 42)
	assert.False(t, ok)
}

func TestIgnoreDefaults(t *testing.T) {
	l := NewIgnoreList(t.TempDir())

	ignored := []string{"versions.json", "catalog.json", "collection.json", "schema.json", ".geosyncignore", ".hidden", "x.tmp", "__pycache__/m.pyc", ".DS_Store"}
	for _, p := range ignored {
		assert.True(t, l.Matches(p), p)
	}

	kept := []string{"data.parquet", "tiles/dem.tif", "boundaries.fgb"}
	for _, p := range kept {
		assert.False(t, l.Matches(p), p)
	}
}
