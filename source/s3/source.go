package s3

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hupe1980/rangecache/pageset"
	"github.com/hupe1980/rangecache/source"
)

// Client is the subset of the S3 API the source uses.
type Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object is the cached value for one listed S3 object.
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

// New creates an S3 listing source.
// rootPrefix is prepended to all keys (e.g. "logs/").
func New(client Client, bucket, rootPrefix string) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// NewFromConfig creates a source with a client built from the default AWS
// configuration chain (environment, shared config, IMDS).
func NewFromConfig(ctx context.Context, bucket, rootPrefix string, optFns ...func(*awsconfig.LoadOptions) error) (*Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	return New(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

// Fetch implements source.Source. S3's StartAfter is exclusive, so the
// anchor object is resolved with a separate exact-key listing first;
// reporting the anchor as a window bound without that check would let a
// merged page cover a key whose object was never fetched.
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

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}
	if limit > 0 {
		input.MaxKeys = aws.Int32(int32(limit))
	}
	if after != nil {
		input.StartAfter = aws.String(s.prefix + *after)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return source.Window[string, Object]{}, err
	}

	for _, obj := range out.Contents {
		items = append(items, pageset.Item[string, Object]{
			Key: strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
			Value: Object{
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			},
		})
	}

	w := source.Window[string, Object]{
		Items:    items,
		IsStart:  after == nil,
		IsFinish: !aws.ToBool(out.IsTruncated),
	}
	if after != nil {
		// Sound now that the anchor itself was resolved: the listing
		// proves nothing exists between the anchor and the first returned
		// key, so the window abuts the anchor's page.
		w.Min, w.HasMin = *after, true
	}
	return w, nil
}

// resolveAnchor checks whether an object with exactly the given key exists
// and returns it. An exact-prefix listing with MaxKeys 1 either returns the
// key itself first or proves its absence.
func (s *Source) resolveAnchor(ctx context.Context, key string) (pageset.Item[string, Object], bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix + key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return pageset.Item[string, Object]{}, false, err
	}
	if len(out.Contents) == 0 || aws.ToString(out.Contents[0].Key) != s.prefix+key {
		return pageset.Item[string, Object]{}, false, nil
	}

	obj := out.Contents[0]
	return pageset.Item[string, Object]{
		Key: key,
		Value: Object{
			Size:         aws.ToInt64(obj.Size),
			ETag:         aws.ToString(obj.ETag),
			LastModified: aws.ToTime(obj.LastModified),
		},
	}, true, nil
}
