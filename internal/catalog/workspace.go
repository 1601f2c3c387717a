package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/utils"
)

const (
	MetadataDirName    = ".geosync"
	CatalogFilename    = "catalog.json"
	CollectionFilename = "collection.json"
	SchemaFilename     = "schema.json"
	lockFilename       = "geosync.lock"
	cacheFilename      = "cache.db"
)

var (
	ErrWorkspaceLocked    = errors.New("catalog locked by another process")
	ErrNotACatalog        = errors.New("not a geosync catalog")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrNoChanges          = errors.New("no changes to record")
)

// Workspace is one local catalog root. Every operation takes the root
// explicitly; nothing walks up from the working directory.
type Workspace struct {
	Root        string
	MetadataDir string
	CachePath   string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metadataDir := filepath.Join(root, MetadataDirName)
	return &Workspace{
		Root:        root,
		MetadataDir: metadataDir,
		CachePath:   filepath.Join(metadataDir, cacheFilename),
		flock:       flock.New(filepath.Join(metadataDir, lockFilename)),
	}, nil
}

// Lock takes the single-process workspace lock. Mutating commands hold it
// for their whole run.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return err
	}
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	return w.flock.Unlock()
}

// Exists reports whether the root holds an initialized catalog.
func (w *Workspace) Exists() bool {
	return utils.FileExists(filepath.Join(w.Root, CatalogFilename))
}

// CatalogPath returns the root catalog document path.
func (w *Workspace) CatalogPath() string {
	return filepath.Join(w.Root, CatalogFilename)
}

// Collection is one named dataset directory inside the catalog.
type Collection struct {
	Name       string
	Dir        string
	LedgerPath string
	SchemaPath string
}

func (w *Workspace) newCollection(name string) *Collection {
	dir := filepath.Join(w.Root, name)
	return &Collection{
		Name:       name,
		Dir:        dir,
		LedgerPath: filepath.Join(dir, ledger.Filename),
		SchemaPath: filepath.Join(dir, SchemaFilename),
	}
}

// ValidCollectionName enforces clean names: slash-free, not hidden, not a
// reserved catalog file.
func ValidCollectionName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || name != utils.NormPath(name) {
		return false
	}
	switch name {
	case MetadataDirName, CatalogFilename, CollectionFilename, SchemaFilename, ledger.Filename:
		return false
	}
	return true
}

// Collection returns the named collection, which must already exist.
func (w *Workspace) Collection(name string) (*Collection, error) {
	if !ValidCollectionName(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	c := w.newCollection(name)
	if !utils.DirExists(c.Dir) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Collections discovers every collection in the catalog: any top-level
// directory holding a ledger or a collection document.
func (w *Workspace) Collections() ([]*Collection, error) {
	entries, err := os.ReadDir(w.Root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog root: %w", err)
	}

	var collections []*Collection
	for _, entry := range entries {
		if !entry.IsDir() || !ValidCollectionName(entry.Name()) {
			continue
		}
		c := w.newCollection(entry.Name())
		if utils.FileExists(c.LedgerPath) || utils.FileExists(filepath.Join(c.Dir, CollectionFilename)) {
			collections = append(collections, c)
		}
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i].Name < collections[j].Name })
	return collections, nil
}

// Select resolves the --collection argument: a name picks one collection,
// empty means every collection in the catalog.
func (w *Workspace) Select(name string) ([]*Collection, error) {
	if name != "" {
		c, err := w.Collection(name)
		if err != nil {
			return nil, err
		}
		return []*Collection{c}, nil
	}
	collections, err := w.Collections()
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: %s has no collections", ErrNotACatalog, w.Root)
	}
	return collections, nil
}

// Ledger loads the collection's ledger, or an empty one if none exists yet.
func (c *Collection) Ledger() (*ledger.Ledger, error) {
	l, err := ledger.Read(c.LedgerPath)
	if errors.Is(err, ledger.ErrLedgerNotFound) {
		return ledger.New(), nil
	}
	return l, err
}
