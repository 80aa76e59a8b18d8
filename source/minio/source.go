package minio

import (
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/rangecache/pageset"
	"github.com/hupe1980/rangecache/source"
)

// Client is the subset of the MinIO API the source uses.
type Client interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Object is the cached value for one listed object.
type Object struct {
	Size         int64
	ETag         string
	LastModified time.Time
}

// Source lists the objects of a bucket/prefix as key-ordered windows.
// Keys are reported relative to the prefix.
type Source struct {
	client Client
	bucket string
	prefix string
}

// New creates a MinIO listing source.
// rootPrefix is prepended to all keys (e.g. "logs/").
func New(client Client, bucket, rootPrefix string) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// Fetch implements source.Source. Like S3, StartAfter is exclusive, so the
// anchor object is resolved with a separate exact-key listing first; the
// window may only claim to cover the anchor key once the anchor's presence
// is settled.
func (s *Source) Fetch(ctx context.Context, after *string, limit int) (source.Window[string, Object], error) {
	var items []pageset.Item[string, Object]
	if after != nil {
		anchor, found, err := s.resolveAnchor(ctx, *after)
		if err != nil {
			return source.Window[string, Object]{}, err
		}
		if found {
			items = append(items, anchor)
		}
	}

	// The listing stream is abandoned once the window is full; cancel it
	// so the client goroutine does not keep listing behind our back.
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}
	if after != nil {
		opts.StartAfter = s.prefix + *after
	}

	truncated := false
	for info := range s.client.ListObjects(lctx, s.bucket, opts) {
		if info.Err != nil {
			return source.Window[string, Object]{}, info.Err
		}
		if limit > 0 && len(items) == limit {
			truncated = true
			break
		}
		items = append(items, pageset.Item[string, Object]{
			Key: strings.TrimPrefix(info.Key, s.prefix),
			Value: Object{
				Size:         info.Size,
				ETag:         info.ETag,
				LastModified: info.LastModified,
			},
		})
	}

	w := source.Window[string, Object]{
		Items:    items,
		IsStart:  after == nil,
		IsFinish: !truncated,
	}
	if after != nil {
		w.Min, w.HasMin = *after, true
	}
	return w, nil
}

// resolveAnchor checks whether an object with exactly the given key exists
// and returns it. An exact-prefix listing either streams the key itself
// first or proves its absence.
func (s *Source) resolveAnchor(ctx context.Context, key string) (pageset.Item[string, Object], bool, error) {
	actx, cancel := context.WithCancel(ctx)
	defer cancel()

	exact := s.prefix + key
	for info := range s.client.ListObjects(actx, s.bucket, minio.ListObjectsOptions{
		Prefix:    exact,
		Recursive: true,
	}) {
		if info.Err != nil {
			return pageset.Item[string, Object]{}, false, info.Err
		}
		if info.Key != exact {
			break
		}
		return pageset.Item[string, Object]{
			Key: key,
			Value: Object{
				Size:         info.Size,
				ETag:         info.ETag,
				LastModified: info.LastModified,
			},
		}, true, nil
	}
	return pageset.Item[string, Object]{}, false, nil
}
