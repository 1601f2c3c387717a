package store

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrKeyNotFound        = errors.New("store: key not found")
	ErrPreconditionFailed = errors.New("store: precondition failed")
	ErrReadOnly           = errors.New("store: backend is read-only")
)

// ObjectInfo describes one stored object. ETag is an opaque token that
// changes whenever the object's content changes.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
}

// PutOptions carries the optimistic-concurrency conditions for a write.
// IfMatch requires the current object to carry exactly that ETag.
// IfNoneMatch set to "*" requires the key to not exist yet. A failed
// condition reports ErrPreconditionFailed and leaves the object untouched.
type PutOptions struct {
	IfMatch     string
	IfNoneMatch string
}

// Store is the object-store surface the sync protocol needs. Backends must
// make Put-with-conditions atomic: concurrent conditional writers race and
// at most one wins.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, opts *PutOptions) (*ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]*ObjectInfo, error)
}

// GetBytes reads a whole object into memory. Meant for small objects like
// ledgers, not data assets.
func GetBytes(ctx context.Context, s Store, key string) ([]byte, *ObjectInfo, error) {
	body, info, err := s.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}
