package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/geostac/geosync/internal/schema"
)

const initialVersion = "1.0.0"

var ErrInvalidVersion = errors.New("invalid version")

// Version is one immutable entry in a collection's ledger.
type Version struct {
	Version  string              `json:"version"`
	Created  time.Time           `json:"created"`
	Breaking bool                `json:"breaking"`
	Schema   *schema.Fingerprint `json:"schema,omitempty"`
	Assets   map[string]*Asset   `json:"assets"`
	Changes  []string            `json:"changes,omitempty"`
	Message  string              `json:"message,omitempty"`
}

func (v *Version) Asset(name string) (*Asset, bool) {
	a, ok := v.Assets[name]
	return a, ok
}

// AssetNames returns the tracked asset names in sorted order.
func (v *Version) AssetNames() []string {
	names := make([]string, 0, len(v.Assets))
	for name := range v.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two entries record the same version content.
// Compared field by field so map ordering and NaN nodata values do not
// produce false mismatches.
func (v *Version) Equal(other *Version) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Version != other.Version || v.Breaking != other.Breaking || v.Message != other.Message {
		return false
	}
	if !v.Created.Equal(other.Created) {
		return false
	}
	if !v.Schema.Equal(other.Schema) {
		return false
	}
	if len(v.Assets) != len(other.Assets) {
		return false
	}
	for name, a := range v.Assets {
		if !a.Equal(other.Assets[name]) {
			return false
		}
	}
	if len(v.Changes) != len(other.Changes) {
		return false
	}
	for i, c := range v.Changes {
		if c != other.Changes[i] {
			return false
		}
	}
	return true
}

// IsValidVersion reports whether s is a bare three-component semantic
// version like "1.0.3". Prerelease and build metadata are rejected.
func IsValidVersion(s string) bool {
	if s == "" || strings.HasPrefix(s, "v") {
		return false
	}
	v := "v" + s
	return semver.IsValid(v) && semver.Canonical(v) == v && semver.Prerelease(v) == ""
}

// CompareVersions orders two valid version strings like semver.Compare.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// NextVersion returns the version that follows prev. An empty prev starts
// at 1.0.0; otherwise the patch component is incremented. The breaking flag
// deliberately does not influence the bump.
func NextVersion(prev string) (string, error) {
	if prev == "" {
		return initialVersion, nil
	}
	if !IsValidVersion(prev) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, prev)
	}
	parts := strings.Split(prev, ".")
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, prev)
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1), nil
}
