package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Remote identifies one catalog location in object storage. The scheme
// picks the backend; the S3 connection extras are filled in by the caller
// from config before Connect.
type Remote struct {
	Raw    string
	Scheme string // s3, http, https, file

	// s3
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// http(s)
	BaseURL string

	// file
	Path string
}

func (r *Remote) String() string {
	return r.Raw
}

// ReadOnly reports whether the backend can never accept a push.
func (r *Remote) ReadOnly() bool {
	return r.Scheme == "http" || r.Scheme == "https"
}

// ParseRemote turns a destination argument into a Remote. Accepted forms:
// s3://bucket/prefix, https://host/base, file:///dir, or a bare
// filesystem path.
func ParseRemote(raw string) (*Remote, error) {
	if raw == "" {
		return nil, errors.New("empty remote")
	}

	if !strings.Contains(raw, "://") {
		return &Remote{Raw: raw, Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse remote %q: %w", raw, err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("s3 remote %q: missing bucket", raw)
		}
		return &Remote{
			Raw:    raw,
			Scheme: "s3",
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	case "http", "https":
		return &Remote{
			Raw:     raw,
			Scheme:  u.Scheme,
			BaseURL: strings.TrimRight(raw, "/"),
		}, nil
	case "file":
		if u.Path == "" {
			return nil, fmt.Errorf("file remote %q: missing path", raw)
		}
		return &Remote{Raw: raw, Scheme: "file", Path: u.Path}, nil
	default:
		return nil, fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}
}

// Connect opens the backend for this remote.
func (r *Remote) Connect(ctx context.Context) (Store, error) {
	switch r.Scheme {
	case "s3":
		return NewS3Store(ctx, &S3Config{
			Bucket:    r.Bucket,
			Region:    r.Region,
			Endpoint:  r.Endpoint,
			AccessKey: r.AccessKey,
			SecretKey: r.SecretKey,
		})
	case "http", "https":
		return NewHTTPStore(r.BaseURL), nil
	case "file":
		return NewFileStore(r.Path)
	default:
		return nil, fmt.Errorf("unsupported remote scheme %q", r.Scheme)
	}
}

// JoinKey joins key segments with slashes, skipping empty parts.
func JoinKey(parts ...string) string {
	return path.Join(parts...)
}
