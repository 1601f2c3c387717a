package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/geostac/geosync/internal/jsonutil"
	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/utils"
)

const stacVersion = "1.0.0"

// Link is a STAC link object.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// CatalogDoc is the root catalog document. Only the fields the tool
// touches are modeled; everything else in the file is preserved by the
// conversion tooling that owns it.
type CatalogDoc struct {
	Type        string `json:"type"`
	StacVersion string `json:"stac_version"`
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Links       []Link `json:"links"`
}

// CollectionDoc is the per-collection descriptive document.
type CollectionDoc struct {
	Type        string `json:"type"`
	StacVersion string `json:"stac_version"`
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Links       []Link `json:"links"`
}

func readDoc[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := jsonutil.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

func writeDoc(path string, doc any) error {
	data, err := jsonutil.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadCatalogDoc loads the root catalog document.
func (w *Workspace) ReadCatalogDoc() (*CatalogDoc, error) {
	return readDoc[CatalogDoc](w.CatalogPath())
}

// Init creates the catalog root and its catalog document. Calling it on an
// initialized catalog is a no-op.
func (w *Workspace) Init(id, description string) error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return err
	}
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return err
	}
	if w.Exists() {
		slog.Debug("catalog already initialized", "root", w.Root)
		return nil
	}

	if id == "" {
		id = filepath.Base(w.Root)
	}
	doc := &CatalogDoc{
		Type:        "Catalog",
		StacVersion: stacVersion,
		ID:          id,
		Description: description,
		Links:       []Link{{Rel: "self", Href: CatalogFilename, Type: "application/json"}},
	}
	if err := writeDoc(w.CatalogPath(), doc); err != nil {
		return fmt.Errorf("write catalog document: %w", err)
	}
	slog.Info("initialized catalog", "root", w.Root, "id", id)
	return nil
}

// InitCollection creates a collection directory with its document and an
// empty ledger, and links it from the catalog document. Idempotent.
func (w *Workspace) InitCollection(name string) (*Collection, error) {
	if !ValidCollectionName(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	if !w.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNotACatalog, w.Root)
	}

	c := w.newCollection(name)
	if err := utils.EnsureDir(c.Dir); err != nil {
		return nil, err
	}

	docPath := filepath.Join(c.Dir, CollectionFilename)
	if !utils.FileExists(docPath) {
		doc := &CollectionDoc{
			Type:        "Collection",
			StacVersion: stacVersion,
			ID:          name,
			Links: []Link{
				{Rel: "self", Href: CollectionFilename, Type: "application/json"},
				{Rel: "root", Href: "../" + CatalogFilename, Type: "application/json"},
			},
		}
		if err := writeDoc(docPath, doc); err != nil {
			return nil, fmt.Errorf("write collection document: %w", err)
		}
	}

	if !utils.FileExists(c.LedgerPath) {
		if err := ledger.Write(c.LedgerPath, ledger.New()); err != nil {
			return nil, err
		}
	}

	if err := w.linkCollection(name); err != nil {
		return nil, err
	}
	slog.Info("initialized collection", "name", name)
	return c, nil
}

// linkCollection adds a child link for the collection to the catalog
// document, once.
func (w *Workspace) linkCollection(name string) error {
	doc, err := w.ReadCatalogDoc()
	if err != nil {
		return fmt.Errorf("read catalog document: %w", err)
	}

	href := name + "/" + CollectionFilename
	for _, link := range doc.Links {
		if link.Rel == "child" && link.Href == href {
			return nil
		}
	}
	doc.Links = append(doc.Links, Link{Rel: "child", Href: href, Type: "application/json"})
	return writeDoc(w.CatalogPath(), doc)
}
