package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/checksum"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/store"
	"github.com/geostac/geosync/internal/utils"
)

type PullOptions struct {
	Force  bool
	DryRun bool
}

type PullResult struct {
	Collection    string
	State         State
	DryRun        bool
	Merged        bool
	Downloaded    int
	Skipped       int
	LocalVersion  string // before the pull
	RemoteVersion string
	Transfers     []Transfer
}

// Pull brings one collection up to the remote's current version: download
// the assets of the remote tip the working copy lacks, then append the
// remote-only ledger entries locally. The ledger write happens only after
// every download has verified, so an interruption leaves the local ledger
// untouched and completed downloads are simply recognized on the next
// attempt. A working copy with unpushed content edits refuses to pull
// unless forced.
func (c *Client) Pull(ctx context.Context, col *catalog.Collection, opts PullOptions) (*PullResult, error) {
	local, err := col.Ledger()
	if err != nil {
		return nil, err
	}
	remote, err := c.Fetch(ctx, col.Name)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(local, remote)
	result := &PullResult{
		Collection:    col.Name,
		State:         plan.State,
		DryRun:        opts.DryRun,
		LocalVersion:  local.CurrentVersion,
		RemoteVersion: remote.Ledger.CurrentVersion,
		Transfers:     plan.Downloads,
	}

	switch plan.State {
	case UpToDate, LocalAhead:
		// nothing to bring in
		return result, nil
	case RemoteAhead:
	case Diverged:
		if !opts.Force {
			return nil, &ConflictError{
				Collection:    col.Name,
				Op:            "pull",
				State:         plan.State,
				Unrelated:     plan.Unrelated,
				LocalVersion:  local.CurrentVersion,
				RemoteVersion: remote.Ledger.CurrentVersion,
			}
		}
		slog.Warn("force pull, discarding local-only history", "collection", col.Name,
			"local", local.CurrentVersion, "remote", remote.Ledger.CurrentVersion)
	}

	if !opts.Force {
		if err := c.guardDirty(col, local, remote.Ledger); err != nil {
			return nil, err
		}
	}

	if opts.DryRun {
		return result, nil
	}

	remoteTip := remote.Ledger.Latest()
	downloaded := 0
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workerCount())
	results := make([]bool, len(plan.Downloads))
	for i, t := range plan.Downloads {
		i, t := i, t
		asset := remoteTip.Assets[t.Name]
		g.Go(func() error {
			got, err := c.downloadAsset(gctx, col, &t, asset)
			if err != nil {
				return err
			}
			results[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pull %s: %w", col.Name, err)
	}
	for _, got := range results {
		if got {
			downloaded++
		} else {
			skipped++
		}
	}

	merged, err := mergeLedgers(local, remote.Ledger, plan, opts.Force)
	if err != nil {
		return nil, err
	}
	if err := ledger.Write(col.LedgerPath, merged); err != nil {
		return nil, err
	}

	result.Merged = true
	result.Downloaded = downloaded
	result.Skipped = skipped
	slog.Info("pulled", "collection", col.Name,
		"from", orNone(local.CurrentVersion), "to", merged.CurrentVersion,
		"downloaded", downloaded, "skipped", skipped)
	return result, nil
}

// guardDirty refuses to advance over unpushed content edits. Tracked files
// are compared against the local ledger's current version; a mismatch is
// forgiven when the live bytes already equal what the remote tip records
// for that name, which is exactly the residue of an interrupted pull.
// Deleted files block nothing since downloading cannot destroy data there.
func (c *Client) guardDirty(col *catalog.Collection, local *ledger.Ledger, remote *ledger.Ledger) error {
	latest := local.Latest()
	if latest == nil {
		return nil
	}
	var remoteAssets map[string]*ledger.Asset
	if tip := remote.Latest(); tip != nil {
		remoteAssets = tip.Assets
	}

	var dirty []string
	for _, name := range latest.AssetNames() {
		a := latest.Assets[name]
		path := filepath.Join(col.Dir, filepath.FromSlash(a.Href))

		current, err := checksum.IsCurrent(path, a)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if errors.Is(err, checksum.ErrNotRegularFile) {
			dirty = append(dirty, name)
			continue
		}
		if err != nil {
			return err
		}
		if current {
			continue
		}

		sum, err := checksum.File(path)
		if err != nil {
			return err
		}
		if ra, ok := remoteAssets[name]; ok && ra.SHA256 == sum {
			continue
		}
		dirty = append(dirty, name)
	}

	if len(dirty) > 0 {
		return &DirtyError{Collection: col.Name, Files: dirty}
	}
	return nil
}

// downloadAsset fetches one content-addressed object into the working
// copy. The body streams through a hash into a temp file next to the
// target, verifies against the recorded checksum, then renames into
// place. Returns false when the file is already at the target checksum.
func (c *Client) downloadAsset(ctx context.Context, col *catalog.Collection, t *Transfer, asset *ledger.Asset) (bool, error) {
	target := filepath.Join(col.Dir, filepath.FromSlash(t.Href))

	if sum, err := checksum.File(target); err == nil && sum == t.SHA256 {
		slog.Debug("asset already current, skipping download",
			"collection", col.Name, "asset", t.Name)
		return false, nil
	}

	key := c.fetcher.AssetKey(col.Name, t)
	body, _, err := c.Store.Get(ctx, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, fmt.Errorf("remote ledger references missing object %s: %w", key, err)
	}
	if err != nil {
		return false, fmt.Errorf("download %s: %w", t.Name, err)
	}
	defer body.Close()

	if err := utils.EnsureParent(target); err != nil {
		return false, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".geosync-dl-*")
	if err != nil {
		return false, err
	}
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), body); err != nil {
		return false, fmt.Errorf("download %s: %w", t.Name, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != t.SHA256 {
		return false, fmt.Errorf("download %s: checksum mismatch: got %s, want %s", t.Name, sum, t.SHA256)
	}
	if err := tmp.Sync(); err != nil {
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return false, err
	}
	success = true

	// restore the recorded mtime so the next staleness check takes the
	// fast path
	if asset != nil && asset.Mtime != nil {
		mt := ledger.UnixToTime(*asset.Mtime)
		if err := os.Chtimes(target, time.Now(), mt); err != nil {
			slog.Warn("could not restore mtime", "path", target, "error", err)
		}
	}

	slog.Debug("downloaded asset", "collection", col.Name, "asset", t.Name, "bytes", t.SizeBytes)
	return true, nil
}

// mergeLedgers appends the remote-only entries onto the local ledger.
// Local-only history is never rewritten except under force, which adopts
// the remote ledger wholesale.
func mergeLedgers(local *ledger.Ledger, remote *ledger.Ledger, plan *Plan, force bool) (*ledger.Ledger, error) {
	if plan.State == Diverged {
		if !force {
			return nil, fmt.Errorf("diverged ledgers cannot merge")
		}
		return remote, nil
	}

	merged := local
	for _, v := range plan.RemoteOnly {
		next, err := merged.AddVersion(v)
		if err != nil {
			return nil, fmt.Errorf("merge remote version %s: %w", v.Version, err)
		}
		merged = next
	}
	return merged, nil
}
