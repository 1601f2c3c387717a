package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/checksum"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/store"
)

type PushOptions struct {
	Force  bool
	DryRun bool
}

type PushResult struct {
	Collection    string
	State         State
	DryRun        bool
	Published     bool
	Uploaded      int
	Skipped       int
	LocalVersion  string
	RemoteVersion string
	Transfers     []Transfer
}

// Push publishes local-only versions of one collection: upload every asset
// the remote lacks, then write the ledger under the ETag captured at fetch
// time. The ledger write happens only after every upload has succeeded, so
// a remote reader never observes a version whose assets are missing; a
// failed conditional write leaves the remote manifest exactly as it was.
func (c *Client) Push(ctx context.Context, col *catalog.Collection, opts PushOptions) (*PushResult, error) {
	local, err := col.Ledger()
	if err != nil {
		return nil, err
	}
	remote, err := c.Fetch(ctx, col.Name)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(local, remote)
	result := &PushResult{
		Collection:    col.Name,
		State:         plan.State,
		DryRun:        opts.DryRun,
		LocalVersion:  local.CurrentVersion,
		RemoteVersion: remote.Ledger.CurrentVersion,
		Transfers:     plan.Uploads,
	}

	switch plan.State {
	case UpToDate:
		return result, nil
	case LocalAhead:
		// safe to publish
	default:
		if !opts.Force {
			return nil, &ConflictError{
				Collection:    col.Name,
				Op:            "push",
				State:         plan.State,
				Unrelated:     plan.Unrelated,
				LocalVersion:  local.CurrentVersion,
				RemoteVersion: remote.Ledger.CurrentVersion,
			}
		}
		slog.Warn("force push", "collection", col.Name, "state", plan.State,
			"local", local.CurrentVersion, "remote", remote.Ledger.CurrentVersion)
	}

	if opts.DryRun {
		return result, nil
	}

	uploads, skippedUnavailable, err := c.verifyUploads(col, local, plan.Uploads)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workerCount())
	for _, t := range uploads {
		t := t
		g.Go(func() error {
			return c.uploadAsset(gctx, col, &t)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("push %s: %w", col.Name, err)
	}

	if err := c.publishLedger(ctx, col.Name, local, remote); err != nil {
		return nil, err
	}

	result.Published = true
	result.Uploaded = len(uploads)
	result.Skipped = distinctAssetCount(plan.LocalOnly) - len(plan.Uploads) + skippedUnavailable
	slog.Info("pushed", "collection", col.Name, "version", local.CurrentVersion,
		"uploaded", result.Uploaded, "skipped", result.Skipped)
	return result, nil
}

// verifyUploads checks every planned transfer against the working copy
// before any byte moves. Assets of the current version must still match
// their recorded checksum; uploading from a dirty working copy would
// poison a content-addressed key. Historical checksums whose bytes are no
// longer on disk cannot be sourced and are skipped.
func (c *Client) verifyUploads(col *catalog.Collection, local *ledger.Ledger, transfers []Transfer) ([]Transfer, int, error) {
	latest := local.Latest()

	var dirty []string
	var available []Transfer
	skipped := 0

	for _, t := range transfers {
		path := filepath.Join(col.Dir, filepath.FromSlash(t.Href))

		if latest != nil {
			if a, ok := latest.Assets[t.Name]; ok && a.SHA256 == t.SHA256 {
				current, err := checksum.IsCurrent(path, a)
				if errors.Is(err, fs.ErrNotExist) {
					dirty = append(dirty, t.Name)
					continue
				}
				if err != nil {
					return nil, 0, err
				}
				if !current {
					dirty = append(dirty, t.Name)
					continue
				}
				available = append(available, t)
				continue
			}
		}

		// asset of an older version: only uploadable if the bytes on disk
		// still match
		sum, err := checksum.File(path)
		if err != nil || sum != t.SHA256 {
			slog.Warn("historical asset unavailable locally, skipping upload",
				"collection", col.Name, "asset", t.Name, "sha256", t.SHA256)
			skipped++
			continue
		}
		available = append(available, t)
	}

	if len(dirty) > 0 {
		return nil, 0, &DirtyError{Collection: col.Name, Files: dirty}
	}
	return available, skipped, nil
}

func (c *Client) uploadAsset(ctx context.Context, col *catalog.Collection, t *Transfer) error {
	path := filepath.Join(col.Dir, filepath.FromSlash(t.Href))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.Name, err)
	}
	defer f.Close()

	key := c.fetcher.AssetKey(col.Name, t)
	if _, err := c.Store.Put(ctx, key, f, t.SizeBytes, nil); err != nil {
		return fmt.Errorf("upload %s: %w", t.Name, err)
	}
	slog.Debug("uploaded asset", "collection", col.Name, "key", key, "bytes", t.SizeBytes)
	return nil
}

// publishLedger performs the manifest-last conditional write. An absent
// remote requires the key to still be absent; otherwise the write is
// conditional on the fetched ETag.
func (c *Client) publishLedger(ctx context.Context, collection string, local *ledger.Ledger, remote *RemoteState) error {
	data, err := local.Encode()
	if err != nil {
		return err
	}

	putOpts := &store.PutOptions{}
	if remote.Absent() {
		putOpts.IfNoneMatch = "*"
	} else {
		putOpts.IfMatch = remote.ETag
	}

	key := c.fetcher.LedgerKey(collection)
	_, err = c.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), putOpts)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return &ConflictError{
			Collection:    collection,
			Op:            "push",
			State:         Diverged,
			LocalVersion:  local.CurrentVersion,
			RemoteVersion: remote.Ledger.CurrentVersion,
		}
	}
	if err != nil {
		return fmt.Errorf("publish ledger %s: %w", key, err)
	}
	return nil
}

func distinctAssetCount(versions []*ledger.Version) int {
	shas := mapset.NewThreadUnsafeSet[string]()
	for _, v := range versions {
		for _, a := range v.Assets {
			shas.Add(a.SHA256)
		}
	}
	return shas.Cardinality()
}
