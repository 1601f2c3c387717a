package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/geostac/geosync/internal/jsonutil"
	"github.com/geostac/geosync/internal/utils"
)

const (
	// Filename is the per-collection ledger file name.
	Filename = "versions.json"

	// SpecVersion is the ledger format revision this build reads and writes.
	SpecVersion = "1.0.0"
)

var ErrLedgerNotFound = errors.New("ledger not found")

// Ledger is the append-only version log of one collection. It is handled
// as an immutable value: AddVersion returns a new ledger and the only side
// effect anywhere is the atomic file write that publishes one.
type Ledger struct {
	SpecVersion    string     `json:"spec_version"`
	CurrentVersion string     `json:"current_version,omitempty"`
	Versions       []*Version `json:"versions"`
}

// New returns an empty ledger at the current spec revision.
func New() *Ledger {
	return &Ledger{
		SpecVersion: SpecVersion,
		Versions:    []*Version{},
	}
}

// Latest returns the most recent version entry, or nil for an empty ledger.
func (l *Ledger) Latest() *Version {
	if len(l.Versions) == 0 {
		return nil
	}
	return l.Versions[len(l.Versions)-1]
}

// Version returns the entry recorded under the given version string.
func (l *Ledger) Version(version string) (*Version, bool) {
	for _, v := range l.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return nil, false
}

// AddVersion returns a new ledger with entry appended and the current
// version pointer advanced. The receiver is not modified. The entry must
// carry a valid version string that sorts after the current version.
func (l *Ledger) AddVersion(entry *Version) (*Ledger, error) {
	if entry == nil {
		return nil, errors.New("nil version entry")
	}
	if !IsValidVersion(entry.Version) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, entry.Version)
	}
	if l.CurrentVersion != "" && CompareVersions(entry.Version, l.CurrentVersion) <= 0 {
		return nil, fmt.Errorf("version %s does not advance current version %s", entry.Version, l.CurrentVersion)
	}

	next := &Ledger{
		SpecVersion:    l.SpecVersion,
		CurrentVersion: entry.Version,
		Versions:       make([]*Version, 0, len(l.Versions)+1),
	}
	next.Versions = append(next.Versions, l.Versions...)
	next.Versions = append(next.Versions, entry)
	return next, nil
}

// Validate checks the structural invariants of a decoded ledger.
func (l *Ledger) Validate() error {
	if len(l.Versions) == 0 {
		if l.CurrentVersion != "" {
			return fmt.Errorf("current version %q with no version entries", l.CurrentVersion)
		}
		return nil
	}
	last := l.Versions[len(l.Versions)-1]
	if l.CurrentVersion != last.Version {
		return fmt.Errorf("current version %q does not match last entry %q", l.CurrentVersion, last.Version)
	}
	for _, v := range l.Versions {
		if !IsValidVersion(v.Version) {
			return fmt.Errorf("%w: %q", ErrInvalidVersion, v.Version)
		}
	}
	return nil
}

// Decode parses and validates ledger bytes.
func Decode(data []byte) (*Ledger, error) {
	var l Ledger
	if err := jsonutil.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt ledger: %w", err)
	}
	return &l, nil
}

// Encode renders the ledger in its indented on-disk form.
func (l *Ledger) Encode() ([]byte, error) {
	data, err := jsonutil.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return append(data, '\n'), nil
}

// Read loads the ledger file at path. A missing file reports
// ErrLedgerNotFound.
func Read(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return Decode(data)
}

// Write atomically publishes the ledger to path. The bytes land in a temp
// file in the same directory and are renamed over the destination, so a
// crash never leaves a half-written manifest.
func Write(path string, l *Ledger) error {
	data, err := l.Encode()
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
