package schema

import (
	"fmt"
)

// ChangeType classifies one structural difference between two fingerprints.
type ChangeType string

const (
	ChangeKind         ChangeType = "kind_changed"
	ChangeCRS          ChangeType = "crs_changed"
	ChangeColumnLost   ChangeType = "column_removed"
	ChangeColumnType   ChangeType = "column_type_changed"
	ChangeGeometryType ChangeType = "geometry_type_changed"
	ChangeNullability  ChangeType = "nullability_narrowed"
	ChangeBandLost     ChangeType = "band_removed"
	ChangeBandType     ChangeType = "band_data_type_changed"
	ChangeNoData       ChangeType = "nodata_changed"
)

// BreakingChange is one structural difference that would break a consumer
// of the previous version. The list is transient; only the boolean verdict
// is persisted on a version entry.
type BreakingChange struct {
	Type    ChangeType `json:"type"`
	Element string     `json:"element"`
	Old     string     `json:"old,omitempty"`
	New     string     `json:"new,omitempty"`
}

func (c BreakingChange) String() string {
	if c.Old == "" && c.New == "" {
		return fmt.Sprintf("%s: %s", c.Type, c.Element)
	}
	return fmt.Sprintf("%s: %s (%s -> %s)", c.Type, c.Element, c.Old, c.New)
}

// Detect compares two fingerprints and returns every breaking difference.
// Additions are never breaking. Free-text fields (description, unit) are
// never breaking. A kind mismatch short-circuits all further comparison.
// Either side being nil yields no changes; absence is handled by callers.
func Detect(old, new *Fingerprint) []BreakingChange {
	if old == nil || new == nil {
		return nil
	}

	if old.Kind != new.Kind {
		return []BreakingChange{{
			Type:    ChangeKind,
			Element: "schema",
			Old:     string(old.Kind),
			New:     string(new.Kind),
		}}
	}

	var changes []BreakingChange
	if old.CRS != new.CRS {
		changes = append(changes, BreakingChange{
			Type:    ChangeCRS,
			Element: "schema",
			Old:     old.CRS,
			New:     new.CRS,
		})
	}

	switch old.Kind {
	case KindRaster:
		changes = append(changes, diffBands(old.Bands, new.Bands)...)
	default:
		changes = append(changes, diffColumns(old.Columns, new.Columns)...)
	}
	return changes
}

// IsBreaking reports whether recording new over old would break consumers.
func IsBreaking(old, new *Fingerprint) bool {
	return len(Detect(old, new)) > 0
}

func diffColumns(old, new []Column) []BreakingChange {
	byName := make(map[string]Column, len(new))
	for _, c := range new {
		byName[c.Name] = c
	}

	var changes []BreakingChange
	for _, prev := range old {
		cur, ok := byName[prev.Name]
		if !ok {
			changes = append(changes, BreakingChange{Type: ChangeColumnLost, Element: prev.Name, Old: prev.Type})
			continue
		}
		if prev.Type != cur.Type {
			changes = append(changes, BreakingChange{Type: ChangeColumnType, Element: prev.Name, Old: prev.Type, New: cur.Type})
		}
		if prev.GeometryType != cur.GeometryType {
			changes = append(changes, BreakingChange{Type: ChangeGeometryType, Element: prev.Name, Old: prev.GeometryType, New: cur.GeometryType})
		}
		if prev.CRS != cur.CRS {
			changes = append(changes, BreakingChange{Type: ChangeCRS, Element: prev.Name, Old: prev.CRS, New: cur.CRS})
		}
		if prev.Nullable && !cur.Nullable {
			changes = append(changes, BreakingChange{Type: ChangeNullability, Element: prev.Name, Old: "nullable", New: "not nullable"})
		}
	}
	return changes
}

func diffBands(old, new []Band) []BreakingChange {
	byName := make(map[string]Band, len(new))
	for _, b := range new {
		byName[b.Name] = b
	}

	var changes []BreakingChange
	for _, prev := range old {
		cur, ok := byName[prev.Name]
		if !ok {
			changes = append(changes, BreakingChange{Type: ChangeBandLost, Element: prev.Name, Old: prev.DataType})
			continue
		}
		if prev.DataType != cur.DataType {
			changes = append(changes, BreakingChange{Type: ChangeBandType, Element: prev.Name, Old: prev.DataType, New: cur.DataType})
		}
		if !nodataEqual(prev.NoData, cur.NoData) {
			changes = append(changes, BreakingChange{Type: ChangeNoData, Element: prev.Name, Old: formatNoData(prev.NoData), New: formatNoData(cur.NoData)})
		}
	}
	return changes
}

func formatNoData(n *NoData) string {
	if n == nil {
		return "unset"
	}
	return fmt.Sprintf("%g", float64(*n))
}
