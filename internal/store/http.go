package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/geostac/geosync/internal/version"
)

var httpUserAgent = fmt.Sprintf("%s/%s (%s; %s)", version.AppName, version.Version, runtime.GOOS, runtime.GOARCH)

// HTTPStore reads a catalog published behind a plain HTTP(S) mirror, for
// pull and clone of public catalogs. The mirror is read-only: Put and List
// report ErrReadOnly, so such a remote can never be a push destination.
type HTTPStore struct {
	client  *req.Client
	baseURL string
}

func NewHTTPStore(baseURL string) *HTTPStore {
	client := req.C().
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent(httpUserAgent).
		SetTimeout(5 * time.Minute)

	return &HTTPStore{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (h *HTTPStore) Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	url := h.baseURL + "/" + strings.TrimLeft(key, "/")

	resp, err := h.client.R().
		DisableAutoReadResponse().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", url, err)
	}

	if resp.IsErrorState() {
		resp.Body.Close()
		if resp.GetStatusCode() == http.StatusNotFound {
			return nil, nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, nil, fmt.Errorf("get %s: unexpected status %d", url, resp.GetStatusCode())
	}

	info := &ObjectInfo{
		Key:  key,
		ETag: trimETag(resp.Header.Get("ETag")),
		Size: resp.ContentLength,
	}
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = t
	}
	return resp.Body, info, nil
}

func (h *HTTPStore) Put(ctx context.Context, key string, body io.Reader, size int64, opts *PutOptions) (*ObjectInfo, error) {
	return nil, fmt.Errorf("%w: http remote %s", ErrReadOnly, h.baseURL)
}

func (h *HTTPStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	return nil, fmt.Errorf("%w: http remote %s", ErrReadOnly, h.baseURL)
}
