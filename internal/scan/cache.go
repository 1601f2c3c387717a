package scan

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/geostac/geosync/internal/db"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS checksum_cache (
    path     TEXT PRIMARY KEY,
    size     INTEGER NOT NULL,
    mtime_ns INTEGER NOT NULL,
    sha256   TEXT NOT NULL
);
`

type cacheRow struct {
	Path    string `db:"path"`
	Size    int64  `db:"size"`
	MtimeNs int64  `db:"mtime_ns"`
	SHA256  string `db:"sha256"`
}

// ChecksumCache memoizes file checksums keyed by (path, size, mtime). A row
// only answers a lookup when size and mtime still match, so a stale row is
// never served; it is overwritten on the next Store.
type ChecksumCache struct {
	db     *sqlx.DB
	dbPath string
}

// NewChecksumCache creates a cache backed by the SQLite file at dbPath.
func NewChecksumCache(dbPath string) *ChecksumCache {
	return &ChecksumCache{dbPath: dbPath}
}

func (c *ChecksumCache) Open() error {
	if c.db != nil {
		return errors.New("checksum cache already open")
	}
	database, err := db.NewSqliteDB(db.WithPath(c.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open checksum cache: %w", err)
	}
	if _, err := database.Exec(cacheSchema); err != nil {
		database.Close()
		return fmt.Errorf("init checksum cache schema: %w", err)
	}
	c.db = database
	return nil
}

func (c *ChecksumCache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Lookup returns the cached checksum for path if the stored size and mtime
// still match the live file.
func (c *ChecksumCache) Lookup(path string, size, mtimeNs int64) (string, bool) {
	var row cacheRow
	err := c.db.Get(&row, "SELECT path, size, mtime_ns, sha256 FROM checksum_cache WHERE path = ?", path)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("checksum cache lookup failed", "path", path, "error", err)
		}
		return "", false
	}
	if row.Size != size || row.MtimeNs != mtimeNs {
		return "", false
	}
	return row.SHA256, true
}

// Store records the checksum for path at the given size and mtime.
func (c *ChecksumCache) Store(path string, size, mtimeNs int64, sha string) error {
	row := cacheRow{Path: path, Size: size, MtimeNs: mtimeNs, SHA256: sha}
	query := `INSERT OR REPLACE INTO checksum_cache (path, size, mtime_ns, sha256)
	          VALUES (:path, :size, :mtime_ns, :sha256)`
	if _, err := c.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("store checksum for %s: %w", path, err)
	}
	return nil
}

// Forget drops the cached row for path.
func (c *ChecksumCache) Forget(path string) error {
	if _, err := c.db.Exec("DELETE FROM checksum_cache WHERE path = ?", path); err != nil {
		return fmt.Errorf("forget checksum for %s: %w", path, err)
	}
	return nil
}

// Count returns the number of cached rows.
func (c *ChecksumCache) Count() (int, error) {
	var count int
	if err := c.db.Get(&count, "SELECT COUNT(*) FROM checksum_cache"); err != nil {
		return 0, fmt.Errorf("count checksum cache: %w", err)
	}
	return count, nil
}
