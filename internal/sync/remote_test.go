package sync

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostac/geosync/internal/store"
)

func TestFetchAbsentRemote(t *testing.T) {
	mem := store.NewMemoryStore()
	f := NewFetcher(mem, testPrefix)

	remote, err := f.Fetch(context.Background(), "roads")
	require.NoError(t, err)
	assert.True(t, remote.Absent())
	require.NotNil(t, remote.Ledger)
	assert.Empty(t, remote.Ledger.CurrentVersion)
	assert.Empty(t, remote.Ledger.Versions)
}

func TestFetchCachesDecodedLedgerByEtag(t *testing.T) {
	mem := store.NewMemoryStore()
	f := NewFetcher(mem, testPrefix)

	l := testLedger(t, testVersion(t, "1.0.0", testAsset("data.parquet", "sha-1")))
	data, err := l.Encode()
	require.NoError(t, err)
	_, err = mem.Put(context.Background(), f.LedgerKey("roads"), bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err)

	first, err := f.Fetch(context.Background(), "roads")
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), "roads")
	require.NoError(t, err)

	assert.Equal(t, first.ETag, second.ETag)
	assert.Same(t, first.Ledger, second.Ledger, "unchanged etag reuses the decoded ledger")

	// remote moves: the stale cache entry is replaced
	l2 := testLedger(t,
		testVersion(t, "1.0.0", testAsset("data.parquet", "sha-1")),
		testVersion(t, "1.0.1", testAsset("data.parquet", "sha-2")),
	)
	data2, err := l2.Encode()
	require.NoError(t, err)
	_, err = mem.Put(context.Background(), f.LedgerKey("roads"), bytes.NewReader(data2), int64(len(data2)), nil)
	require.NoError(t, err)

	third, err := f.Fetch(context.Background(), "roads")
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, third.ETag)
	assert.Equal(t, "1.0.1", third.Ledger.CurrentVersion)
}

func TestFetchRejectsCorruptLedger(t *testing.T) {
	mem := store.NewMemoryStore()
	f := NewFetcher(mem, testPrefix)

	garbage := []byte(`{"spec_version": "1.0.0", "current_version": "9.9.9", "versions": []}`)
	_, err := mem.Put(context.Background(), f.LedgerKey("roads"), bytes.NewReader(garbage), int64(len(garbage)), nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "roads")
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt")
}

func TestLedgerAndAssetKeys(t *testing.T) {
	f := NewFetcher(store.NewMemoryStore(), "catalogs/demo")
	assert.Equal(t, "catalogs/demo/roads/versions.json", f.LedgerKey("roads"))

	tr := &Transfer{Name: "tiles/t1.tif", SHA256: "abc", Href: "tiles/t1.tif"}
	assert.Equal(t, "catalogs/demo/roads/assets/abc/t1.tif", f.AssetKey("roads", tr))

	bare := NewFetcher(store.NewMemoryStore(), "")
	assert.Equal(t, "roads/versions.json", bare.LedgerKey("roads"))
}
