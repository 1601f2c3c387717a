package sync

import (
	"context"
	"runtime"

	"github.com/geostac/geosync/internal/store"
)

// Client runs the sync protocol for one remote. Asset transfers fan out
// over a bounded worker pool; the ledger write is the only ordered step.
type Client struct {
	Store   store.Store
	Prefix  string
	Workers int

	fetcher *Fetcher
}

func NewClient(s store.Store, prefix string) *Client {
	return &Client{
		Store:   s,
		Prefix:  prefix,
		fetcher: NewFetcher(s, prefix),
	}
}

// Fetch snapshots the remote state of one collection.
func (c *Client) Fetch(ctx context.Context, collection string) (*RemoteState, error) {
	return c.fetcher.Fetch(ctx, collection)
}

func (c *Client) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
