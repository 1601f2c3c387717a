package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/geostac/geosync/internal/checksum"
	"github.com/geostac/geosync/internal/utils"
)

// FileStore serves a catalog from a plain directory, for file:// remotes
// on shared drives and for integration tests. ETags are content sha256, so
// they behave like S3 etags across processes; the conditional-write check
// is race-free only within one process, which matches how a directory
// remote is actually used.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	resolved, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := utils.EnsureDir(resolved); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: resolved}, nil
}

func (f *FileStore) Root() string {
	return f.root
}

func (f *FileStore) keyPath(key string) (string, error) {
	clean := utils.NormPath(key)
	if clean == "" || strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

func (f *FileStore) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	path, err := f.keyPath(key)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return nil, nil, err
	}

	etag, err := checksum.File(path)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return file, &ObjectInfo{
		Key:          key,
		ETag:         etag,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

func (f *FileStore) Put(ctx context.Context, key string, body io.Reader, size int64, opts *PutOptions) (*ObjectInfo, error) {
	path, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.currentETag(path)
	if err != nil {
		return nil, err
	}
	if opts != nil {
		if opts.IfNoneMatch == "*" && current != "" {
			return nil, fmt.Errorf("%w: %s already exists", ErrPreconditionFailed, key)
		}
		if opts.IfMatch != "" && opts.IfMatch != current {
			return nil, fmt.Errorf("%w: %s etag mismatch", ErrPreconditionFailed, key)
		}
	}

	if err := utils.EnsureParent(path); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".geosync-put-*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), body)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, err
	}
	success = true

	return &ObjectInfo{
		Key:  key,
		ETag: hex.EncodeToString(hasher.Sum(nil)),
		Size: written,
	}, nil
}

func (f *FileStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	var objects []*ObjectInfo

	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := utils.NormPath(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		etag, err := checksum.File(path)
		if err != nil {
			return err
		}
		objects = append(objects, &ObjectInfo{
			Key:          key,
			ETag:         etag,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (f *FileStore) currentETag(path string) (string, error) {
	etag, err := checksum.File(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return etag, nil
}
