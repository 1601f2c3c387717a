package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// chunkSize bounds memory use while hashing, independent of file size.
const chunkSize = 1 << 20

// MtimeTolerance is the slack allowed when comparing recorded and live
// modification times, in seconds. Filesystems and archive tools round
// mtimes differently, so exact equality is too strict.
const MtimeTolerance = 1e-3

var ErrNotRegularFile = errors.New("not a regular file")

// File returns the hex sha256 of the file at path. Symlinks are resolved;
// a target that is not a plain file reports ErrNotRegularFile. The file is
// streamed in fixed-size chunks.
func File(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MtimeEqual compares two fractional Unix mtimes within MtimeTolerance.
func MtimeEqual(a, b float64) bool {
	return math.Abs(a-b) <= MtimeTolerance
}
