package schema

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geostac/geosync/internal/jsonutil"
)

// Kind is the storage format family of a data asset.
type Kind string

const (
	KindVector Kind = "vector"
	KindRaster Kind = "raster"
)

// NoData is a raster nodata value. JSON has no NaN literal, so NaN
// round-trips as the string "nan".
type NoData float64

func (n NoData) IsNaN() bool {
	return math.IsNaN(float64(n))
}

func (n NoData) MarshalJSON() ([]byte, error) {
	if n.IsNaN() {
		return []byte(`"nan"`), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'g', -1, 64)), nil
}

func (n *NoData) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if strings.EqualFold(s, "nan") {
		*n = NoData(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid nodata value %q: %w", s, err)
	}
	*n = NoData(f)
	return nil
}

// Column is the structural summary of one vector column.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	GeometryType string `json:"geometry_type,omitempty"`
	CRS          string `json:"crs,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Band is the structural summary of one raster band.
type Band struct {
	Name        string  `json:"name"`
	DataType    string  `json:"data_type"`
	NoData      *NoData `json:"nodata,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Fingerprint is a cheap-to-compare structural digest of a dataset schema.
// It carries column/band names, types and CRS, not the full schema document.
type Fingerprint struct {
	Kind    Kind     `json:"kind"`
	CRS     string   `json:"crs,omitempty"`
	Columns []Column `json:"columns,omitempty"`
	Bands   []Band   `json:"bands,omitempty"`
}

// Equal reports full structural equality, including free-text fields.
// NaN nodata values compare equal to each other.
func (f *Fingerprint) Equal(other *Fingerprint) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Kind != other.Kind || f.CRS != other.CRS {
		return false
	}
	if len(f.Columns) != len(other.Columns) || len(f.Bands) != len(other.Bands) {
		return false
	}
	for i, c := range f.Columns {
		if c != other.Columns[i] {
			return false
		}
	}
	for i, b := range f.Bands {
		o := other.Bands[i]
		if b.Name != o.Name || b.DataType != o.DataType || b.Unit != o.Unit || b.Description != o.Description {
			return false
		}
		if !nodataEqual(b.NoData, o.NoData) {
			return false
		}
	}
	return true
}

func (f *Fingerprint) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (f *Fingerprint) Band(name string) (Band, bool) {
	for _, b := range f.Bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

func nodataEqual(a, b *NoData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsNaN() && b.IsNaN() {
		return true
	}
	return *a == *b
}

// ReadFile loads a schema fingerprint from a sidecar JSON document.
// Unknown fields in the document are ignored.
func ReadFile(path string) (*Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fingerprint
	if err := jsonutil.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schema fingerprint %s: %w", path, err)
	}
	f.Kind = Kind(strings.ToLower(string(f.Kind)))
	return &f, nil
}

// KindForPath guesses the format family from a file extension. Used as a
// fallback when a collection has no schema sidecar yet.
func KindForPath(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".geoparquet", ".fgb", ".geojson":
		return KindVector, true
	case ".tif", ".tiff":
		return KindRaster, true
	default:
		return "", false
	}
}
