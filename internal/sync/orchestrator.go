package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/check"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/scan"
	"github.com/geostac/geosync/internal/store"
)

type SyncOptions struct {
	Force   bool
	DryRun  bool
	Fix     bool
	Message string
}

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageResult is the outcome of one orchestrated stage. Failures are
// recorded, never re-panicked; the caller reads partial completion off
// the stage list.
type StageResult struct {
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
	Err    error       `json:"-"`
}

type SyncResult struct {
	Collection string        `json:"collection"`
	Stages     []StageResult `json:"stages"`
	Recorded   string        `json:"recorded,omitempty"` // version the fix stage recorded
	Pull       *PullResult   `json:"pull,omitempty"`
	Push       *PushResult   `json:"push,omitempty"`
}

// Failed returns the first failed stage, or nil when every stage passed.
func (r *SyncResult) Failed() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Status == StageFailed {
			return &r.Stages[i]
		}
	}
	return nil
}

// Sync runs the full cycle for one collection: pull, re-init, scan, check
// (recording a new version when fix is set and the working copy drifted),
// then push. The first failing stage stops the sequence; everything that
// already ran stays reported in the result. The caller holds the
// workspace lock.
func (c *Client) Sync(ctx context.Context, ws *catalog.Workspace, col *catalog.Collection, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{Collection: col.Name}

	fail := func(stage string, err error) (*SyncResult, error) {
		slog.Error("sync stage failed", "collection", col.Name, "stage", stage, "error", err)
		result.Stages = append(result.Stages, StageResult{
			Name: stage, Status: StageFailed, Detail: err.Error(), Err: err,
		})
		return result, err
	}
	ok := func(stage, detail string) {
		result.Stages = append(result.Stages, StageResult{
			Name: stage, Status: StageOK, Detail: detail,
		})
	}

	pullRes, err := c.Pull(ctx, col, PullOptions{Force: opts.Force, DryRun: opts.DryRun})
	if err != nil {
		return fail("pull", err)
	}
	result.Pull = pullRes
	ok("pull", fmt.Sprintf("%s, %d downloaded", pullRes.State, pullRes.Downloaded))

	if err := ws.Init("", ""); err != nil {
		return fail("init", err)
	}
	ok("init", "")

	cache := scan.NewChecksumCache(ws.CachePath)
	if err := cache.Open(); err != nil {
		slog.Warn("checksum cache unavailable, hashing everything", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}
	scanner := &scan.Scanner{Cache: cache, Workers: c.Workers}
	scanRes, err := scanner.Scan(ctx, col.Dir)
	if err != nil {
		return fail("scan", err)
	}
	ok("scan", fmt.Sprintf("%d data files", len(scanRes.Entries)))

	report, err := check.Run(col, scanRes)
	if err != nil {
		return fail("check", err)
	}
	switch {
	case !report.Stale():
		ok("check", "clean")
	case !opts.Fix:
		ok("check", fmt.Sprintf("%d unrecorded changes, pass fix to record", staleCount(report)))
	case opts.DryRun:
		result.Stages = append(result.Stages, StageResult{
			Name: "check", Status: StageSkipped,
			Detail: fmt.Sprintf("dry run, would record %s", report.NextVersion),
		})
	default:
		_, entry, err := col.RecordVersion(scanRes, opts.Message)
		if errors.Is(err, catalog.ErrNoChanges) {
			ok("check", "nothing to record")
		} else if err != nil {
			return fail("check", err)
		} else {
			result.Recorded = entry.Version
			ok("check", "recorded "+entry.Version)
		}
	}

	pushRes, err := c.Push(ctx, col, PushOptions{Force: opts.Force, DryRun: opts.DryRun})
	if err != nil {
		return fail("push", err)
	}
	result.Push = pushRes
	ok("push", fmt.Sprintf("%s, %d uploaded", pushRes.State, pushRes.Uploaded))

	return result, nil
}

func staleCount(r *check.Report) int {
	return len(r.StaleFiles()) + len(r.Missing)
}

// DiscoverCollections lists the collections published under the remote
// prefix by finding their ledger objects. Read-only remotes that cannot
// list report ErrReadOnly; the caller must then name collections
// explicitly.
func (c *Client) DiscoverCollections(ctx context.Context) ([]string, error) {
	infos, err := c.Store.List(ctx, c.Prefix)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, info := range infos {
		rel := info.Key
		if c.Prefix != "" {
			rel = strings.TrimPrefix(rel, c.Prefix+"/")
		}
		parts := strings.Split(rel, "/")
		if len(parts) == 2 && parts[1] == ledger.Filename {
			names = append(names, parts[0])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Clone materializes remote collections into a fresh local catalog. With
// no explicit names it discovers every collection under the prefix; each
// one is initialized locally and pulled at its current version.
func (c *Client) Clone(ctx context.Context, ws *catalog.Workspace, collections []string) ([]*PullResult, error) {
	if err := ws.Init("", ""); err != nil {
		return nil, err
	}

	if len(collections) == 0 {
		discovered, err := c.DiscoverCollections(ctx)
		if errors.Is(err, store.ErrReadOnly) {
			return nil, fmt.Errorf("remote cannot list collections, name them explicitly: %w", err)
		}
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			return nil, fmt.Errorf("no collections found under remote prefix %q", c.Prefix)
		}
		collections = discovered
	}

	var results []*PullResult
	for _, name := range collections {
		col, err := ws.InitCollection(name)
		if err != nil {
			return results, err
		}
		res, err := c.Pull(ctx, col, PullOptions{})
		if err != nil {
			return results, fmt.Errorf("clone %s: %w", name, err)
		}
		results = append(results, res)
		slog.Info("cloned collection", "collection", name, "version", res.RemoteVersion)
	}
	return results, nil
}
