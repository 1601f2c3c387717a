package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostac/geosync/internal/ledger"
)

func testAsset(name, sha string) *ledger.Asset {
	return &ledger.Asset{Name: name, SHA256: sha, SizeBytes: int64(len(sha)), Href: name}
}

func testVersion(t *testing.T, version string, assets ...*ledger.Asset) *ledger.Version {
	t.Helper()
	m := make(map[string]*ledger.Asset, len(assets))
	for _, a := range assets {
		m[a.Name] = a
	}
	return &ledger.Version{
		Version: version,
		Created: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Assets:  m,
	}
}

func testLedger(t *testing.T, versions ...*ledger.Version) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	for _, v := range versions {
		next, err := l.AddVersion(v)
		require.NoError(t, err)
		l = next
	}
	return l
}

func remoteFor(l *ledger.Ledger) *RemoteState {
	return &RemoteState{Ledger: l, ETag: "etag-1"}
}

func TestBuildPlanUpToDate(t *testing.T) {
	v1 := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-a"))
	local := testLedger(t, v1)
	remote := testLedger(t, v1)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, UpToDate, plan.State)
	assert.Equal(t, 1, plan.CommonPrefix)
	assert.Empty(t, plan.Uploads)
	assert.Empty(t, plan.Downloads)
}

func TestBuildPlanBothEmpty(t *testing.T) {
	plan := BuildPlan(ledger.New(), &RemoteState{Ledger: ledger.New()})
	assert.Equal(t, UpToDate, plan.State)
	assert.Zero(t, plan.CommonPrefix)
}

func TestBuildPlanLocalAhead(t *testing.T) {
	v1 := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-a"))
	v2 := testVersion(t, "1.0.1", testAsset("data.parquet", "sha-b"))
	local := testLedger(t, v1, v2)
	remote := testLedger(t, v1)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, LocalAhead, plan.State)
	assert.Equal(t, 1, plan.CommonPrefix)
	require.Len(t, plan.LocalOnly, 1)
	assert.Equal(t, "1.0.1", plan.LocalOnly[0].Version)
	require.Len(t, plan.Uploads, 1)
	assert.Equal(t, "sha-b", plan.Uploads[0].SHA256)
	assert.Empty(t, plan.Downloads)
}

func TestBuildPlanRemoteAhead(t *testing.T) {
	v1 := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-a"))
	v2 := testVersion(t, "1.0.1", testAsset("data.parquet", "sha-b"))
	local := testLedger(t, v1)
	remote := testLedger(t, v1, v2)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, RemoteAhead, plan.State)
	assert.Empty(t, plan.Uploads)
	require.Len(t, plan.Downloads, 1)
	assert.Equal(t, "sha-b", plan.Downloads[0].SHA256)
}

func TestBuildPlanDiverged(t *testing.T) {
	base := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-a"))
	mine := testVersion(t, "1.0.1", testAsset("data.parquet", "sha-b"))
	theirs := testVersion(t, "1.0.1", testAsset("data.parquet", "sha-c"))
	local := testLedger(t, base, mine)
	remote := testLedger(t, base, theirs)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, Diverged, plan.State)
	assert.False(t, plan.Unrelated)
	assert.Equal(t, 1, plan.CommonPrefix)
	require.Len(t, plan.LocalOnly, 1)
	require.Len(t, plan.RemoteOnly, 1)
}

func TestBuildPlanDivergedSameVersionDifferentContent(t *testing.T) {
	// identical version strings do not make a common prefix when the
	// entries themselves differ
	mine := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-b"))
	theirs := testVersion(t, "1.0.0", testAsset("data.parquet", "sha-c"))
	local := testLedger(t, mine)
	remote := testLedger(t, theirs)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, Diverged, plan.State)
	assert.True(t, plan.Unrelated)
	assert.Zero(t, plan.CommonPrefix)
}

func TestBuildPlanUnrelatedHistories(t *testing.T) {
	local := testLedger(t, testVersion(t, "1.0.0", testAsset("a.parquet", "sha-a")))
	remote := testLedger(t, testVersion(t, "2.0.0", testAsset("b.parquet", "sha-b")))

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, Diverged, plan.State)
	assert.True(t, plan.Unrelated)
}

func TestPlanUploadsDedupedByChecksum(t *testing.T) {
	// the same bytes under two names and across two versions move once
	v1 := testVersion(t, "1.0.0",
		testAsset("a.parquet", "sha-1"),
		testAsset("copy.parquet", "sha-1"),
	)
	v2 := testVersion(t, "1.0.1",
		testAsset("a.parquet", "sha-1"),
		testAsset("b.parquet", "sha-2"),
	)
	local := testLedger(t, v1, v2)

	plan := BuildPlan(local, &RemoteState{Ledger: ledger.New()})
	assert.Equal(t, LocalAhead, plan.State)
	require.Len(t, plan.Uploads, 2)

	shas := []string{plan.Uploads[0].SHA256, plan.Uploads[1].SHA256}
	assert.ElementsMatch(t, []string{"sha-1", "sha-2"}, shas)
}

func TestPlanUploadsSkipShasRemoteAlreadyHas(t *testing.T) {
	v1 := testVersion(t, "1.0.0", testAsset("a.parquet", "sha-1"))
	v2 := testVersion(t, "1.0.1",
		testAsset("a.parquet", "sha-1"),
		testAsset("b.parquet", "sha-2"),
	)
	local := testLedger(t, v1, v2)
	remote := testLedger(t, v1)

	plan := BuildPlan(local, remoteFor(remote))
	require.Len(t, plan.Uploads, 1)
	assert.Equal(t, "sha-2", plan.Uploads[0].SHA256)
}

func TestPlanDownloadsOnlyFromRemoteTip(t *testing.T) {
	v1 := testVersion(t, "1.0.0", testAsset("a.parquet", "sha-1"))
	v2 := testVersion(t, "1.0.1",
		testAsset("a.parquet", "sha-1"), // unchanged since local tip
		testAsset("b.parquet", "sha-2"), // intermediate, superseded
	)
	v3 := testVersion(t, "1.0.2",
		testAsset("a.parquet", "sha-1"),
		testAsset("b.parquet", "sha-3"),
	)
	local := testLedger(t, v1)
	remote := testLedger(t, v1, v2, v3)

	plan := BuildPlan(local, remoteFor(remote))
	assert.Equal(t, RemoteAhead, plan.State)
	require.Len(t, plan.Downloads, 1)
	assert.Equal(t, "b.parquet", plan.Downloads[0].Name)
	assert.Equal(t, "sha-3", plan.Downloads[0].SHA256)
}

func TestTransferKeyIsContentAddressed(t *testing.T) {
	tr := Transfer{Name: "tiles/t1.tif", SHA256: "abc123", Href: "tiles/t1.tif"}
	assert.Equal(t, "assets/abc123/t1.tif", tr.Key())
}
