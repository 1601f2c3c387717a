package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/geostac/geosync/internal/checksum"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/utils"
)

// DataFilePatterns is the allowlist of cloud-native data formats a
// collection may track. Anything else found in a collection is reported,
// not tracked.
var DataFilePatterns = []string{
	"**/*.{parquet,geoparquet}",
	"**/*.{fgb,geojson}",
	"**/*.{tif,tiff}",
}

// IsDataFile reports whether the slash-relative href matches the
// cloud-native allowlist.
func IsDataFile(href string) bool {
	lower := strings.ToLower(href)
	for _, pattern := range DataFilePatterns {
		if ok, _ := doublestar.Match(pattern, lower); ok {
			return true
		}
	}
	return false
}

// Entry is one data file discovered in a collection.
type Entry struct {
	Href    string  `json:"href"` // slash-relative to the collection directory
	AbsPath string  `json:"-"`
	Size    int64   `json:"size_bytes"`
	Mtime   float64 `json:"mtime"`
	SHA256  string  `json:"sha256"`
}

// Result is the outcome of scanning one collection directory.
type Result struct {
	Entries     []Entry
	Unsupported []string // discovered files not in a cloud-native format
}

// Entry returns the scanned entry for href, if present.
func (r *Result) Entry(href string) (*Entry, bool) {
	for i := range r.Entries {
		if r.Entries[i].Href == href {
			return &r.Entries[i], true
		}
	}
	return nil, false
}

// Scanner walks a collection directory, filters it through the ignore
// rules and the data-format allowlist, and checksums what remains.
type Scanner struct {
	Cache   *ChecksumCache // optional, nil disables memoization
	Ignore  *IgnoreList    // optional, defaults to the built-in rules
	Workers int            // hashing parallelism, defaults to NumCPU
}

type candidate struct {
	href string
	abs  string
	info fs.FileInfo
}

// Scan enumerates and checksums the data files under dir.
func (s *Scanner) Scan(ctx context.Context, dir string) (*Result, error) {
	ignore := s.Ignore
	if ignore == nil {
		ignore = NewIgnoreList(dir)
	}

	var candidates []candidate
	var unsupported []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		href := utils.NormPath(rel)

		if d.IsDir() {
			if ignore.Matches(href) || ignore.Matches(href+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.Matches(href) {
			return nil
		}

		info, err := os.Stat(path) // resolves symlinked files
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !IsDataFile(href) {
			unsupported = append(unsupported, href)
			return nil
		}

		candidates = append(candidates, candidate{href: href, abs: path, info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	entries := make([]Entry, len(candidates))
	var cacheHits atomic.Int64

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			mtimeNs := c.info.ModTime().UnixNano()
			sha, ok := "", false
			if s.Cache != nil {
				sha, ok = s.Cache.Lookup(c.abs, c.info.Size(), mtimeNs)
			}
			if ok {
				cacheHits.Add(1)
			} else {
				var err error
				sha, err = checksum.File(c.abs)
				if err != nil {
					return fmt.Errorf("checksum %s: %w", c.href, err)
				}
				if s.Cache != nil {
					if err := s.Cache.Store(c.abs, c.info.Size(), mtimeNs, sha); err != nil {
						slog.Warn("checksum cache store failed", "path", c.abs, "error", err)
					}
				}
			}

			entries[i] = Entry{
				Href:    c.href,
				AbsPath: c.abs,
				Size:    c.info.Size(),
				Mtime:   ledger.TimeToUnix(c.info.ModTime()),
				SHA256:  sha,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Href < entries[j].Href })
	sort.Strings(unsupported)

	slog.Debug("scan complete",
		"dir", dir,
		"files", len(entries),
		"unsupported", len(unsupported),
		"cache_hits", cacheHits.Load(),
	)
	return &Result{Entries: entries, Unsupported: unsupported}, nil
}
