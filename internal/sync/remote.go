package sync

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/geostac/geosync/internal/ledger"
	"github.com/geostac/geosync/internal/store"
)

const ledgerCacheSize = 64

type cachedLedger struct {
	etag   string
	ledger *ledger.Ledger
}

// Fetcher reads remote ledgers. Decoded ledgers are kept in an LRU keyed
// by object key and revalidated by ETag, so the pull-then-push sequence of
// a sync decodes each unchanged ledger once.
type Fetcher struct {
	store  store.Store
	prefix string
	cache  *lru.Cache[string, *cachedLedger]
}

func NewFetcher(s store.Store, prefix string) *Fetcher {
	cache, _ := lru.New[string, *cachedLedger](ledgerCacheSize)
	return &Fetcher{store: s, prefix: prefix, cache: cache}
}

// LedgerKey returns the object key of a collection's ledger.
func (f *Fetcher) LedgerKey(collection string) string {
	return store.JoinKey(f.prefix, collection, ledger.Filename)
}

// AssetKey returns the content-addressed object key for one transfer.
func (f *Fetcher) AssetKey(collection string, t *Transfer) string {
	return store.JoinKey(f.prefix, collection, t.Key())
}

// Fetch snapshots the remote ledger of a collection. A missing ledger
// object is an empty remote, not an error.
func (f *Fetcher) Fetch(ctx context.Context, collection string) (*RemoteState, error) {
	key := f.LedgerKey(collection)

	data, info, err := store.GetBytes(ctx, f.store, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return &RemoteState{Ledger: ledger.New()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch remote ledger %s: %w", key, err)
	}

	if cached, ok := f.cache.Get(key); ok && cached.etag == info.ETag && info.ETag != "" {
		return &RemoteState{Ledger: cached.ledger, ETag: info.ETag}, nil
	}

	l, err := ledger.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("remote ledger %s: %w", key, err)
	}
	if info.ETag != "" {
		f.cache.Add(key, &cachedLedger{etag: info.ETag, ledger: l})
	}
	return &RemoteState{Ledger: l, ETag: info.ETag}, nil
}
