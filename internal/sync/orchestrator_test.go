package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/scan"
	"github.com/geostac/geosync/internal/store"
)

func writeInto(t *testing.T, col *catalog.Collection, name, content string) {
	t.Helper()
	path := filepath.Join(col.Dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFrom(t *testing.T, col *catalog.Collection, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(col.Dir, name))
	require.NoError(t, err)
	return string(data)
}

func recordCollection(t *testing.T, col *catalog.Collection) {
	t.Helper()
	s := &scan.Scanner{}
	result, err := s.Scan(context.Background(), col.Dir)
	require.NoError(t, err)
	_, _, err = col.RecordVersion(result, "")
	require.NoError(t, err)
}

func stageByName(t *testing.T, r *SyncResult, name string) *StageResult {
	t.Helper()
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	t.Fatalf("no %s stage in %+v", name, r.Stages)
	return nil
}

func TestSyncRecordsAndPublishes(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "fresh bytes")

	res, err := a.client.Sync(context.Background(), a.ws, a.col, SyncOptions{Fix: true, Message: "via sync"})
	require.NoError(t, err)
	require.Nil(t, res.Failed())

	assert.Equal(t, "1.0.0", res.Recorded)
	assert.Equal(t, StageOK, stageByName(t, res, "pull").Status)
	assert.Equal(t, StageOK, stageByName(t, res, "check").Status)
	assert.Equal(t, StageOK, stageByName(t, res, "push").Status)
	require.NotNil(t, res.Push)
	assert.Equal(t, 1, res.Push.Uploaded)

	_, ok := mem.Bytes(ledgerKey("roads"))
	assert.True(t, ok)
}

func TestSyncWithoutFixReportsDrift(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "never recorded")

	res, err := a.client.Sync(context.Background(), a.ws, a.col, SyncOptions{})
	require.NoError(t, err)
	require.Nil(t, res.Failed())

	assert.Empty(t, res.Recorded)
	assert.Contains(t, stageByName(t, res, "check").Detail, "unrecorded")

	_, ok := mem.Bytes(ledgerKey("roads"))
	assert.False(t, ok, "nothing recorded means nothing published")
}

func TestSyncDryRunSkipsRecording(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "fresh bytes")

	res, err := a.client.Sync(context.Background(), a.ws, a.col, SyncOptions{Fix: true, DryRun: true})
	require.NoError(t, err)

	checkStage := stageByName(t, res, "check")
	assert.Equal(t, StageSkipped, checkStage.Status)
	assert.Contains(t, checkStage.Detail, "1.0.0")
	assert.Empty(t, res.Recorded)
	assert.Empty(t, mem.Keys())
}

func TestSyncPartialCompletionOnPushFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "recorded bytes")
	a.record(t, "")
	a.write(t, "data.parquet", "tampered after record")

	res, err := a.client.Sync(context.Background(), a.ws, a.col, SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUncommittedChanges)

	require.NotNil(t, res.Failed())
	assert.Equal(t, "push", res.Failed().Name)
	assert.Equal(t, StageOK, stageByName(t, res, "pull").Status)
	assert.Equal(t, StageOK, stageByName(t, res, "scan").Status)
	assert.Equal(t, StageOK, stageByName(t, res, "check").Status)
	require.Len(t, res.Stages, 5)
}

func TestSyncConflictStopsAtPull(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "base")
	a.record(t, "")
	_, err := a.client.Push(context.Background(), a.col, PushOptions{})
	require.NoError(t, err)

	b := newReplica(t, mem, "roads")
	_, err = b.client.Pull(context.Background(), b.col, PullOptions{})
	require.NoError(t, err)
	b.write(t, "data.parquet", "b change")
	b.record(t, "")

	a.write(t, "data.parquet", "a change")
	a.record(t, "")
	_, err = a.client.Push(context.Background(), a.col, PushOptions{})
	require.NoError(t, err)

	res, err := b.client.Sync(context.Background(), b.ws, b.col, SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPullConflict)
	require.Len(t, res.Stages, 1)
	assert.Equal(t, "pull", res.Stages[0].Name)
	assert.Equal(t, StageFailed, res.Stages[0].Status)
}

func TestDiscoverCollections(t *testing.T) {
	mem := store.NewMemoryStore()
	roads := newReplica(t, mem, "roads")
	roads.write(t, "data.parquet", "r")
	roads.record(t, "")
	_, err := roads.client.Push(context.Background(), roads.col, PushOptions{})
	require.NoError(t, err)

	buildings := newReplica(t, mem, "buildings")
	buildings.write(t, "data.parquet", "b")
	buildings.record(t, "")
	_, err = buildings.client.Push(context.Background(), buildings.col, PushOptions{})
	require.NoError(t, err)

	names, err := roads.client.DiscoverCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"buildings", "roads"}, names)
}

func TestCloneConverges(t *testing.T) {
	mem := store.NewMemoryStore()
	a := newReplica(t, mem, "roads")
	a.write(t, "data.parquet", "road bytes")
	a.write(t, "tiles/t1.tif", "tile bytes")
	a.record(t, "")
	_, err := a.client.Push(context.Background(), a.col, PushOptions{})
	require.NoError(t, err)

	buildings, err := a.ws.InitCollection("buildings")
	require.NoError(t, err)
	writeInto(t, buildings, "footprints.parquet", "footprint bytes")
	recordCollection(t, buildings)
	_, err = a.client.Push(context.Background(), buildings, PushOptions{})
	require.NoError(t, err)

	ws2, err := catalog.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	client2 := NewClient(mem, testPrefix)

	results, err := client2.Clone(context.Background(), ws2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// identical bytes and version pointers on both sides
	roads2, err := ws2.Collection("roads")
	require.NoError(t, err)
	assert.Equal(t, "road bytes", readFrom(t, roads2, "data.parquet"))
	assert.Equal(t, "tile bytes", readFrom(t, roads2, "tiles/t1.tif"))

	buildings2, err := ws2.Collection("buildings")
	require.NoError(t, err)
	assert.Equal(t, "footprint bytes", readFrom(t, buildings2, "footprints.parquet"))

	srcLedger, err := a.col.Ledger()
	require.NoError(t, err)
	dstLedger, err := roads2.Ledger()
	require.NoError(t, err)
	assert.Equal(t, srcLedger.CurrentVersion, dstLedger.CurrentVersion)
	assert.True(t, srcLedger.Latest().Equal(dstLedger.Latest()))
}

func TestCloneExplicitCollectionSubset(t *testing.T) {
	mem := store.NewMemoryStore()
	roads := newReplica(t, mem, "roads")
	roads.write(t, "data.parquet", "r")
	roads.record(t, "")
	_, err := roads.client.Push(context.Background(), roads.col, PushOptions{})
	require.NoError(t, err)

	buildings := newReplica(t, mem, "buildings")
	buildings.write(t, "data.parquet", "b")
	buildings.record(t, "")
	_, err = buildings.client.Push(context.Background(), buildings.col, PushOptions{})
	require.NoError(t, err)

	ws2, err := catalog.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	client2 := NewClient(mem, testPrefix)
	results, err := client2.Clone(context.Background(), ws2, []string{"roads"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = ws2.Collection("roads")
	assert.NoError(t, err)
	_, err = ws2.Collection("buildings")
	assert.ErrorIs(t, err, catalog.ErrCollectionNotFound)
}

// listlessStore cannot enumerate keys, like a plain HTTP remote.
type listlessStore struct {
	store.Store
}

func (l *listlessStore) List(ctx context.Context, prefix string) ([]*store.ObjectInfo, error) {
	return nil, store.ErrReadOnly
}

func TestCloneWithoutListingNeedsExplicitNames(t *testing.T) {
	mem := store.NewMemoryStore()
	roads := newReplica(t, mem, "roads")
	roads.write(t, "data.parquet", "r")
	roads.record(t, "")
	_, err := roads.client.Push(context.Background(), roads.col, PushOptions{})
	require.NoError(t, err)

	ws2, err := catalog.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	client2 := NewClient(&listlessStore{Store: mem}, testPrefix)

	_, err = client2.Clone(context.Background(), ws2, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "name them explicitly")

	// naming the collection works fine over the same remote
	results, err := client2.Clone(context.Background(), ws2, []string{"roads"})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
