package rangecache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rangecache/pageset"
	"github.com/hupe1980/rangecache/source"
)

func testItems(keys ...int) []pageset.Item[int, string] {
	out := make([]pageset.Item[int, string], 0, len(keys))
	for _, k := range keys {
		out = append(out, pageset.Item[int, string]{Key: k, Value: strconv.Itoa(k)})
	}
	return out
}

func resultKeys(res pageset.QueryResult[int, string]) []int {
	out := make([]int, 0, len(res.Items))
	for _, it := range res.Items {
		out = append(out, it.Key)
	}
	return out
}

func rangeItems(from, to int) []pageset.Item[int, string] {
	var keys []int
	for k := from; k <= to; k++ {
		keys = append(keys, k)
	}
	return testItems(keys...)
}

// countingSource wraps the in-memory slice source and counts fetches.
type countingSource struct {
	*source.Slice[int, string]
	fetches atomic.Int32
}

func newCountingSource(items []pageset.Item[int, string]) *countingSource {
	return &countingSource{Slice: source.NewSlice(items)}
}

func (c *countingSource) Fetch(ctx context.Context, after *int, limit int) (source.Window[int, string], error) {
	c.fetches.Add(1)
	return c.Slice.Fetch(ctx, after, limit)
}

func (c *countingSource) FetchBefore(ctx context.Context, before *int, limit int) (source.Window[int, string], error) {
	c.fetches.Add(1)
	return c.Slice.FetchBefore(ctx, before, limit)
}

// forwardOnly hides the reverse half of the slice source.
type forwardOnly struct {
	inner *source.Slice[int, string]
}

func (f forwardOnly) Fetch(ctx context.Context, after *int, limit int) (source.Window[int, string], error) {
	return f.inner.Fetch(ctx, after, limit)
}

// failingSource fails every fetch.
type failingSource struct {
	err error
}

func (f failingSource) Fetch(context.Context, *int, int) (source.Window[int, string], error) {
	return source.Window[int, string]{}, f.err
}

func TestCacheReadAfterFetchesUntilComplete(t *testing.T) {
	src := newCountingSource(rangeItems(1, 10))
	c := New(
		WithSource[int, string](src),
		WithWindowSize[int, string](3),
	)

	res, err := c.ReadAfter(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{2, 3, 4, 5, 6}, resultKeys(res))
	assert.Equal(t, int32(2), src.fetches.Load())

	// A second read over the now-cached range touches the source no more.
	res, err = c.ReadAfter(context.Background(), 3, 3)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, int32(2), src.fetches.Load())
}

func TestCacheReadAfterNoCountReachesFinish(t *testing.T) {
	src := newCountingSource(rangeItems(1, 5))
	c := New(
		WithSource[int, string](src),
		WithWindowSize[int, string](2),
	)

	res, err := c.ReadAfter(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{4, 5}, resultKeys(res))
}

func TestCacheReadAfterBeyondEnd(t *testing.T) {
	src := newCountingSource(rangeItems(1, 3))
	c := New(WithSource[int, string](src), WithWindowSize[int, string](10))

	// Nothing exists past the anchor; the source says so once and the read
	// gives up instead of refetching.
	res, err := c.ReadAfter(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.Complete)
	assert.Equal(t, int32(1), src.fetches.Load())

	// Once the finish-flagged tail is cached the same read is answered
	// from the snapshot, and provably complete.
	_, err = c.ReadAfter(context.Background(), 1, 0)
	require.NoError(t, err)
	fetches := src.fetches.Load()

	res, err = c.ReadAfter(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.True(t, res.Complete)
	assert.Equal(t, fetches, src.fetches.Load())
}

func TestCacheReadFromStart(t *testing.T) {
	src := newCountingSource(rangeItems(1, 5))
	c := New(WithSource[int, string](src), WithWindowSize[int, string](2))

	res, err := c.ReadFromStart(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{1, 2, 3, 4}, resultKeys(res))
	assert.True(t, c.Snapshot().MinPage().IsStart())
}

func TestCacheReadFromStartEmptyDataset(t *testing.T) {
	src := newCountingSource(nil)
	c := New(WithSource[int, string](src))

	res, err := c.ReadFromStart(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.True(t, res.Complete)
	assert.True(t, c.Snapshot().MinPage().IsSentinel())
}

func TestCacheReadFromEnd(t *testing.T) {
	src := newCountingSource(rangeItems(1, 5))
	c := New(WithSource[int, string](src), WithWindowSize[int, string](2))

	res, err := c.ReadFromEnd(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{3, 4, 5}, resultKeys(res))
	assert.True(t, c.Snapshot().MaxPage().IsFinish())
}

func TestCacheReadBefore(t *testing.T) {
	src := newCountingSource(rangeItems(1, 5))
	c := New(WithSource[int, string](src), WithWindowSize[int, string](2))

	res, err := c.ReadBefore(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{2, 3}, resultKeys(res))
}

func TestCacheReadBeforeForwardOnly(t *testing.T) {
	c := New(WithSource[int, string](forwardOnly{inner: source.NewSlice(rangeItems(1, 5))}))

	// The forward source cannot help a backward miss.
	_, err := c.ReadBefore(context.Background(), 3, 2)
	assert.ErrorIs(t, err, ErrNoReverseSource)

	// A backward read satisfiable from the snapshot still succeeds.
	require.NoError(t, c.Add(context.Background(), testItems(1, 2, 3), true, false))
	res, err := c.ReadBefore(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{1, 2}, resultKeys(res))
}

func TestCacheManualMode(t *testing.T) {
	c := New[int, string]()

	require.NoError(t, c.Add(context.Background(), testItems(1, 2, 3), true, false))

	res, err := c.ReadAfter(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, []int{1, 2}, resultKeys(res))

	// An uncached range stays incomplete without error; there is nothing
	// to fetch from.
	res, err = c.ReadAfter(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.False(t, res.Complete)

	res, err = c.ReadBefore(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.False(t, res.Complete)
}

func TestCacheAppendAndInvalidate(t *testing.T) {
	c := New[int, string]()
	require.NoError(t, c.Add(context.Background(), testItems(1, 2), false, true))
	require.True(t, c.Snapshot().MaxPage().IsFinish())

	// The dataset grew: the tail is no longer the end until re-confirmed.
	c.InvalidateFinish(context.Background())
	assert.False(t, c.Snapshot().MaxPage().IsFinish())

	c.Append(context.Background(), pageset.Item[int, string]{Key: 3, Value: "3"})
	assert.Equal(t, 3, c.Snapshot().ItemCount())
	assert.Equal(t, 3, c.Snapshot().MaxPage().Max())
}

func TestCacheOrderingViolation(t *testing.T) {
	c := New[int, string]()
	require.NoError(t, c.Add(context.Background(), testItems(10, 11), true, false))

	err := c.Add(context.Background(), testItems(20, 21), true, false)
	require.ErrorIs(t, err, ErrOrderingViolation)

	var be *pageset.BoundaryError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "start", be.Claim)

	// The failed merge leaves the snapshot untouched.
	assert.Equal(t, 2, c.Snapshot().ItemCount())
}

func TestCacheWarm(t *testing.T) {
	src := newCountingSource(rangeItems(1, 20))
	c := New(WithSource[int, string](src), WithWindowSize[int, string](5))

	require.NoError(t, c.Warm(context.Background(), 1, 11))
	assert.Equal(t, 10, c.Snapshot().ItemCount())
	assert.Equal(t, int32(2), src.fetches.Load())

	noSrc := New[int, string]()
	assert.ErrorIs(t, noSrc.Warm(context.Background(), 1), ErrNoSource)
}

func TestCacheFetchError(t *testing.T) {
	boom := errors.New("backend down")
	c := New(WithSource[int, string](failingSource{err: boom}))

	res, err := c.ReadAfter(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Complete)
}

func TestCacheReset(t *testing.T) {
	c := New[int, string]()
	require.NoError(t, c.Add(context.Background(), testItems(1, 2), false, false))
	require.Equal(t, 2, c.Snapshot().ItemCount())

	c.Reset()
	assert.Equal(t, 0, c.Snapshot().ItemCount())
	assert.Equal(t, 0, c.Snapshot().Len())
}

func TestCacheMetrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	src := newCountingSource(rangeItems(1, 10))
	c := New(
		WithSource[int, string](src),
		WithWindowSize[int, string](4),
		WithMetricsCollector[int, string](mc),
	)

	_, err := c.ReadAfter(context.Background(), 1, 6)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.ReadCount)
	assert.Equal(t, int64(0), stats.ReadIncomplete)
	assert.Equal(t, int64(2), stats.FetchCount)
	assert.Equal(t, int64(2), stats.MergeCount)
	assert.GreaterOrEqual(t, stats.FetchItems, int64(6))
}

func TestCacheConcurrentAdds(t *testing.T) {
	const writers = 8
	c := New[int, string]()

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			base := i * 10
			err := c.Add(context.Background(), rangeItems(base, base+4), false, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Disjoint concurrent windows all survive publication races.
	snap := c.Snapshot()
	assert.Equal(t, writers*5, snap.ItemCount())
	assert.Equal(t, writers, snap.Len())
}

func TestCacheSnapshotIsolation(t *testing.T) {
	c := New[int, string]()
	require.NoError(t, c.Add(context.Background(), testItems(1, 2), false, false))

	before := c.Snapshot()
	require.NoError(t, c.Add(context.Background(), testItems(5, 6), false, false))

	// The earlier snapshot is frozen while the cache moved on.
	assert.Equal(t, 2, before.ItemCount())
	assert.Equal(t, 4, c.Snapshot().ItemCount())
}
