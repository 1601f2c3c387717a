package sync

import (
	"path"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/geostac/geosync/internal/ledger"
)

// State classifies the relationship between a local and a remote ledger.
type State string

const (
	UpToDate    State = "up_to_date"
	LocalAhead  State = "local_ahead"
	RemoteAhead State = "remote_ahead"
	Diverged    State = "diverged"
)

// RemoteState is a snapshot of the remote ledger plus the ETag it was read
// under. An absent remote is an empty ledger with an empty ETag.
type RemoteState struct {
	Ledger *ledger.Ledger
	ETag   string
}

// Absent reports whether the remote had no ledger object at all.
func (r *RemoteState) Absent() bool {
	return r.ETag == ""
}

// Transfer is one asset that has to move to reconcile the two sides.
type Transfer struct {
	Name      string
	SHA256    string
	SizeBytes int64
	Href      string
}

// Key returns the content-addressed object key for the transfer, relative
// to the collection.
func (t *Transfer) Key() string {
	return path.Join("assets", t.SHA256, path.Base(t.Href))
}

// Plan is the derived classification of a (local, remote) ledger pair plus
// the transfers each direction would need. It is never persisted.
type Plan struct {
	State        State
	CommonPrefix int
	Unrelated    bool // diverged with no shared entry at all

	LocalOnly  []*ledger.Version
	RemoteOnly []*ledger.Version

	Uploads   []Transfer
	Downloads []Transfer
}

// BuildPlan compares two ledgers. Entries are matched by position: the
// ledger is append-only, so any shared history must be a common prefix of
// identical entries (same version string, same content).
func BuildPlan(local *ledger.Ledger, remote *RemoteState) *Plan {
	localVersions := local.Versions
	remoteVersions := remote.Ledger.Versions

	prefix := 0
	for prefix < len(localVersions) && prefix < len(remoteVersions) {
		if localVersions[prefix].Version != remoteVersions[prefix].Version {
			break
		}
		if !localVersions[prefix].Equal(remoteVersions[prefix]) {
			break
		}
		prefix++
	}

	plan := &Plan{
		CommonPrefix: prefix,
		LocalOnly:    localVersions[prefix:],
		RemoteOnly:   remoteVersions[prefix:],
	}

	switch {
	case len(plan.LocalOnly) == 0 && len(plan.RemoteOnly) == 0:
		plan.State = UpToDate
	case len(plan.RemoteOnly) == 0:
		plan.State = LocalAhead
	case len(plan.LocalOnly) == 0:
		plan.State = RemoteAhead
	default:
		plan.State = Diverged
		plan.Unrelated = prefix == 0
	}

	plan.Uploads = planUploads(plan.LocalOnly, remote.Ledger)
	plan.Downloads = planDownloads(local, remote.Ledger)
	return plan
}

// planUploads collects the assets referenced by local-only entries that
// the remote ledger does not already hold at the same checksum, newest
// first so each checksum is sourced from its most recent entry, deduped
// by checksum since the keys are content-addressed.
func planUploads(localOnly []*ledger.Version, remote *ledger.Ledger) []Transfer {
	have := mapset.NewThreadUnsafeSet[string]()
	for _, v := range remote.Versions {
		for _, a := range v.Assets {
			have.Add(a.SHA256)
		}
	}

	var uploads []Transfer
	for i := len(localOnly) - 1; i >= 0; i-- {
		for _, name := range localOnly[i].AssetNames() {
			a := localOnly[i].Assets[name]
			if have.Contains(a.SHA256) {
				continue
			}
			have.Add(a.SHA256)
			uploads = append(uploads, Transfer{
				Name:      a.Name,
				SHA256:    a.SHA256,
				SizeBytes: a.SizeBytes,
				Href:      a.Href,
			})
		}
	}
	return uploads
}

// planDownloads lists the assets of the remote tip that the local tip
// lacks or records with a different checksum. The working copy only ever
// materializes the current version, so intermediate entries contribute
// history, not file transfers.
func planDownloads(local *ledger.Ledger, remote *ledger.Ledger) []Transfer {
	tip := remote.Latest()
	if tip == nil {
		return nil
	}

	var localAssets map[string]*ledger.Asset
	if latest := local.Latest(); latest != nil {
		localAssets = latest.Assets
	}

	var downloads []Transfer
	for _, name := range tip.AssetNames() {
		a := tip.Assets[name]
		if mine, ok := localAssets[name]; ok && mine.SHA256 == a.SHA256 {
			continue
		}
		downloads = append(downloads, Transfer{
			Name:      a.Name,
			SHA256:    a.SHA256,
			SizeBytes: a.SizeBytes,
			Href:      a.Href,
		})
	}
	return downloads
}
