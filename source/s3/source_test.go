package s3

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rangecache"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func TestFetchFromStart(t *testing.T) {
	mockClient := new(MockS3Client)
	src := New(mockClient, "test-bucket", "logs/")

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "test-bucket" && *input.Prefix == "logs/" &&
			input.StartAfter == nil && *input.MaxKeys == 2
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("logs/2024-01-01"), Size: aws.Int64(10), ETag: aws.String(`"e1"`)},
			{Key: aws.String("logs/2024-01-02"), Size: aws.Int64(20), ETag: aws.String(`"e2"`)},
		},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	w, err := src.Fetch(context.Background(), nil, 2)
	require.NoError(t, err)

	require.Len(t, w.Items, 2)
	assert.Equal(t, "2024-01-01", w.Items[0].Key)
	assert.Equal(t, int64(10), w.Items[0].Value.Size)
	assert.Equal(t, `"e1"`, w.Items[0].Value.ETag)
	assert.True(t, w.IsStart)
	assert.True(t, w.IsFinish)
	assert.False(t, w.HasMin)
	mockClient.AssertExpectations(t)
}

func TestFetchAnchored(t *testing.T) {
	t.Run("anchor object exists", func(t *testing.T) {
		mockClient := new(MockS3Client)
		src := New(mockClient, "test-bucket", "logs/")

		// Exact-key resolution first: StartAfter alone would skip the
		// anchor object.
		mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
			return input.Prefix != nil && *input.Prefix == "logs/2024-01-02" && input.StartAfter == nil
		})).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("logs/2024-01-02"), Size: aws.Int64(5)},
			},
		}, nil).Once()

		mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
			return input.StartAfter != nil && *input.StartAfter == "logs/2024-01-02"
		})).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("logs/2024-01-03")},
			},
			IsTruncated: aws.Bool(true),
		}, nil).Once()

		after := "2024-01-02"
		w, err := src.Fetch(context.Background(), &after, 1)
		require.NoError(t, err)

		require.Len(t, w.Items, 2)
		assert.Equal(t, "2024-01-02", w.Items[0].Key)
		assert.Equal(t, int64(5), w.Items[0].Value.Size)
		assert.Equal(t, "2024-01-03", w.Items[1].Key)
		assert.False(t, w.IsStart)
		assert.False(t, w.IsFinish)
		require.True(t, w.HasMin)
		assert.Equal(t, "2024-01-02", w.Min)
		mockClient.AssertExpectations(t)
	})

	t.Run("anchor object absent", func(t *testing.T) {
		mockClient := new(MockS3Client)
		src := New(mockClient, "test-bucket", "logs/")

		// Resolution proves absence: the next key under the exact prefix
		// is not the anchor itself.
		mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
			return input.Prefix != nil && *input.Prefix == "logs/2024-01-02" && input.StartAfter == nil
		})).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("logs/2024-01-02.bak")},
			},
		}, nil).Once()

		mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
			return input.StartAfter != nil && *input.StartAfter == "logs/2024-01-02"
		})).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("logs/2024-01-02.bak")},
				{Key: aws.String("logs/2024-01-03")},
			},
			IsTruncated: aws.Bool(false),
		}, nil).Once()

		after := "2024-01-02"
		w, err := src.Fetch(context.Background(), &after, 2)
		require.NoError(t, err)

		require.Len(t, w.Items, 2)
		assert.Equal(t, "2024-01-02.bak", w.Items[0].Key)
		require.True(t, w.HasMin)
		assert.Equal(t, "2024-01-02", w.Min)
		mockClient.AssertExpectations(t)
	})
}

// fakeListClient answers ListObjectsV2 over a fixed sorted key list the way
// S3 does: Prefix filter, exclusive StartAfter, MaxKeys with IsTruncated.
type fakeListClient struct {
	keys []string
}

func (f *fakeListClient) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var match []string
	for _, k := range f.keys {
		if params.Prefix != nil && !strings.HasPrefix(k, *params.Prefix) {
			continue
		}
		if params.StartAfter != nil && k <= *params.StartAfter {
			continue
		}
		match = append(match, k)
	}

	truncated := false
	if params.MaxKeys != nil && int(*params.MaxKeys) < len(match) {
		match = match[:*params.MaxKeys]
		truncated = true
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, k := range match {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(1)})
	}
	return out, nil
}

func TestColdReadCoversAnchorObject(t *testing.T) {
	src := New(&fakeListClient{keys: []string{"b", "c", "d"}}, "test-bucket", "")
	cache := rangecache.New(
		rangecache.WithSource[string, Object](src),
		rangecache.WithWindowSize[string, Object](2),
	)

	// A complete answer anchored on an uncached key must include the
	// object stored at exactly that key.
	res, err := cache.ReadAfter(context.Background(), "b", 2)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "b", res.Items[0].Key)
	assert.Equal(t, "c", res.Items[1].Key)

	// An anchor with no object behaves like before: the listing proves
	// the gap empty and the answer stays correct.
	res, err = cache.ReadAfter(context.Background(), "a", 3)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "b", res.Items[0].Key)
}

func TestFetchError(t *testing.T) {
	mockClient := new(MockS3Client)
	src := New(mockClient, "test-bucket", "")

	boom := errors.New("access denied")
	mockClient.On("ListObjectsV2", mock.Anything, mock.Anything).Return(nil, boom).Once()

	_, err := src.Fetch(context.Background(), nil, 10)
	assert.ErrorIs(t, err, boom)
}
