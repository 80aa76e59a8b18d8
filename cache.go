package rangecache

import (
	"cmp"
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/rangecache/atomicref"
	"github.com/hupe1980/rangecache/pageset"
	"github.com/hupe1980/rangecache/source"
)

// Cache couples a PagedSet snapshot cell with an optional backing source.
//
// The current snapshot is published through an atomic compare-and-swap retry
// loop: writers derive a new PagedSet from the snapshot they observed and
// swap it in only if it is still current, so no writer blocks and no reader
// ever observes a partial update.
//
// Reads answer from the current snapshot; when the answer is incomplete and
// a source is configured, the cache fetches further windows, merges them, and
// re-answers, up to a configurable round budget. All methods are safe for
// concurrent use.
type Cache[K cmp.Ordered, V any] struct {
	ref     *atomicref.Ref[pageset.PagedSet[K, V]]
	source  source.Source[K, V]
	reverse source.ReverseSource[K, V] // nil if the source cannot page backwards

	logger  *Logger
	metrics MetricsCollector
	limiter *rate.Limiter
	sem     *semaphore.Weighted

	windowSize int
	maxRounds  int
}

// New creates an empty Cache.
func New[K cmp.Ordered, V any](opts ...Option[K, V]) *Cache[K, V] {
	o := defaultOptions[K, V]()
	for _, fn := range opts {
		fn(&o)
	}

	c := &Cache[K, V]{
		ref:        atomicref.NewRef(pageset.New[K, V]()),
		source:     o.source,
		logger:     o.logger,
		metrics:    o.metrics,
		limiter:    o.limiter,
		windowSize: o.windowSize,
		maxRounds:  o.maxRounds,
	}
	if rs, ok := o.source.(source.ReverseSource[K, V]); ok {
		c.reverse = rs
	}
	if o.maxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(o.maxConcurrent)
	}
	return c
}

// Snapshot returns the current PagedSet. The snapshot is immutable and may
// be queried freely after the cache has moved on.
func (c *Cache[K, V]) Snapshot() *pageset.PagedSet[K, V] {
	return c.ref.Load()
}

// Reset replaces the current snapshot with an empty set.
func (c *Cache[K, V]) Reset() {
	c.ref.Store(pageset.New[K, V]())
}

// AddWindow merges a fetched window into the cache.
func (c *Cache[K, V]) AddWindow(ctx context.Context, w source.Window[K, V]) error {
	return c.applyWindow(ctx, w)
}

// Add merges a batch of items with boundary claims and bounds derived from
// the extreme item keys.
func (c *Cache[K, V]) Add(ctx context.Context, items []pageset.Item[K, V], isStart, isFinish bool) error {
	return c.applyWindow(ctx, source.Window[K, V]{Items: items, IsStart: isStart, IsFinish: isFinish})
}

// Append appends a single item to the latest page, the fast path for a
// dataset growing at its end.
func (c *Cache[K, V]) Append(ctx context.Context, item pageset.Item[K, V]) {
	_, _ = c.publish(func(cur *pageset.PagedSet[K, V]) (*pageset.PagedSet[K, V], error) {
		return cur.AppendToLatest(item), nil
	})
	c.logger.DebugContext(ctx, "append completed", "key", item.Key)
}

// InvalidateFinish clears the finish flag after learning the dataset has
// grown beyond what was previously believed complete.
func (c *Cache[K, V]) InvalidateFinish(ctx context.Context) {
	_, _ = c.publish(func(cur *pageset.PagedSet[K, V]) (*pageset.PagedSet[K, V], error) {
		return cur.InvalidateFinish(), nil
	})
	c.logger.DebugContext(ctx, "finish invalidated")
}

// ReadAfter returns cached items at or after key, fetching missing windows
// from the source until the answer is complete or the round budget runs out.
// The last observed (possibly incomplete) answer is returned alongside any
// fetch or merge error.
func (c *Cache[K, V]) ReadAfter(ctx context.Context, key K, count int) (pageset.QueryResult[K, V], error) {
	started := time.Now()
	res := c.ref.Load().ReadAfter(key, count)

	for rounds := 0; !res.Complete && c.source != nil && rounds < c.maxRounds; rounds++ {
		cursor := key
		if n := len(res.Items); n > 0 {
			cursor = res.Items[n-1].Key
		}
		w, err := c.fetchForward(ctx, &cursor)
		if err != nil {
			return res, err
		}
		if err := c.applyWindow(ctx, w); err != nil {
			return res, err
		}
		res = c.ref.Load().ReadAfter(key, count)
		if !windowAdvanced(w, cursor) {
			break
		}
	}

	c.metrics.RecordRead(len(res.Items), res.Complete, time.Since(started))
	c.logger.LogRead(ctx, "after", count, len(res.Items), res.Complete)
	return res, nil
}

// ReadBefore returns cached items at or before key, fetching backwards when
// the configured source supports it. With a forward-only source the answer
// comes from the current snapshot alone.
func (c *Cache[K, V]) ReadBefore(ctx context.Context, key K, count int) (pageset.QueryResult[K, V], error) {
	started := time.Now()
	res := c.ref.Load().ReadBefore(key, count)

	for rounds := 0; !res.Complete && c.reverse != nil && rounds < c.maxRounds; rounds++ {
		cursor := key
		if len(res.Items) > 0 {
			cursor = res.Items[0].Key
		}
		w, err := c.fetchBackward(ctx, &cursor)
		if err != nil {
			return res, err
		}
		if err := c.applyWindow(ctx, w); err != nil {
			return res, err
		}
		res = c.ref.Load().ReadBefore(key, count)
		if !windowRetreated(w, cursor) {
			break
		}
	}

	c.metrics.RecordRead(len(res.Items), res.Complete, time.Since(started))
	c.logger.LogRead(ctx, "before", count, len(res.Items), res.Complete)
	if !res.Complete && c.reverse == nil && c.source != nil {
		return res, ErrNoReverseSource
	}
	return res, nil
}

// ReadFromStart reads from the logical start of the dataset, fetching the
// first windows from the source if the start is not yet cached.
func (c *Cache[K, V]) ReadFromStart(ctx context.Context, count int) (pageset.QueryResult[K, V], error) {
	started := time.Now()
	res := c.ref.Load().ReadFromStart(count)

	for rounds := 0; !res.Complete && c.source != nil && rounds < c.maxRounds; rounds++ {
		var cursor *K
		if first := c.ref.Load().MinPage(); first != nil && first.IsStart() && first.Count() > 0 {
			k := first.Items()[first.Count()-1].Key
			cursor = &k
		}
		w, err := c.fetchForward(ctx, cursor)
		if err != nil {
			return res, err
		}
		if err := c.applyWindow(ctx, w); err != nil {
			return res, err
		}
		res = c.ref.Load().ReadFromStart(count)
		if len(w.Items) == 0 || (cursor != nil && !windowAdvanced(w, *cursor)) {
			break
		}
	}

	c.metrics.RecordRead(len(res.Items), res.Complete, time.Since(started))
	c.logger.LogRead(ctx, "from-start", count, len(res.Items), res.Complete)
	return res, nil
}

// ReadFromEnd reads from the logical end of the dataset, fetching the last
// windows backwards when the source supports it.
func (c *Cache[K, V]) ReadFromEnd(ctx context.Context, count int) (pageset.QueryResult[K, V], error) {
	started := time.Now()
	res := c.ref.Load().ReadFromEnd(count)

	for rounds := 0; !res.Complete && c.reverse != nil && rounds < c.maxRounds; rounds++ {
		var cursor *K
		if last := c.ref.Load().MaxPage(); last != nil && last.IsFinish() && last.Count() > 0 {
			k := last.Items()[0].Key
			cursor = &k
		}
		w, err := c.fetchBackward(ctx, cursor)
		if err != nil {
			return res, err
		}
		if err := c.applyWindow(ctx, w); err != nil {
			return res, err
		}
		res = c.ref.Load().ReadFromEnd(count)
		if len(w.Items) == 0 || (cursor != nil && !windowRetreated(w, *cursor)) {
			break
		}
	}

	c.metrics.RecordRead(len(res.Items), res.Complete, time.Since(started))
	c.logger.LogRead(ctx, "from-end", count, len(res.Items), res.Complete)
	if !res.Complete && c.reverse == nil && c.source != nil {
		return res, ErrNoReverseSource
	}
	return res, nil
}

// Warm prefetches one window after each of the given keys concurrently.
func (c *Cache[K, V]) Warm(ctx context.Context, keys ...K) error {
	if c.source == nil {
		return ErrNoSource
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		g.Go(func() error {
			w, err := c.fetchForward(ctx, &key)
			if err != nil {
				return err
			}
			return c.applyWindow(ctx, w)
		})
	}
	return g.Wait()
}

// publish runs fn through the compare-and-swap retry loop, recording retries.
func (c *Cache[K, V]) publish(fn func(*pageset.PagedSet[K, V]) (*pageset.PagedSet[K, V], error)) (*pageset.PagedSet[K, V], error) {
	attempts := 0
	next, err := c.ref.Update(func(cur *pageset.PagedSet[K, V]) (*pageset.PagedSet[K, V], error) {
		attempts++
		if attempts > 1 {
			c.metrics.RecordPublishRetry()
		}
		return fn(cur)
	})
	return next, translateError(err)
}

func (c *Cache[K, V]) applyWindow(ctx context.Context, w source.Window[K, V]) error {
	pagesBefore := c.ref.Load().Len()
	next, err := c.publish(func(cur *pageset.PagedSet[K, V]) (*pageset.PagedSet[K, V], error) {
		switch {
		case w.HasMin && w.HasMax:
			return cur.AddRangeBounds(w.Items, w.Min, w.Max, w.IsStart, w.IsFinish)
		case w.HasMin:
			return cur.AddRangeMin(w.Items, w.Min, w.IsStart, w.IsFinish)
		case w.HasMax:
			return cur.AddRangeMax(w.Items, w.Max, w.IsStart, w.IsFinish)
		default:
			return cur.AddRange(w.Items, w.IsStart, w.IsFinish)
		}
	})
	pagesAfter := pagesBefore
	if next != nil {
		pagesAfter = next.Len()
	}
	c.metrics.RecordMerge(pagesBefore, pagesAfter, err)
	c.logger.LogAddRange(ctx, len(w.Items), w.IsStart, w.IsFinish, pagesAfter, err)
	return err
}

func (c *Cache[K, V]) fetchForward(ctx context.Context, after *K) (source.Window[K, V], error) {
	if err := c.acquireFetch(ctx); err != nil {
		return source.Window[K, V]{}, err
	}
	defer c.releaseFetch()

	started := time.Now()
	w, err := c.source.Fetch(ctx, after, c.windowSize)
	c.metrics.RecordFetch(len(w.Items), time.Since(started), err)
	c.logger.LogFetch(ctx, "after", len(w.Items), w.IsStart, w.IsFinish, err)
	return w, err
}

func (c *Cache[K, V]) fetchBackward(ctx context.Context, before *K) (source.Window[K, V], error) {
	if err := c.acquireFetch(ctx); err != nil {
		return source.Window[K, V]{}, err
	}
	defer c.releaseFetch()

	started := time.Now()
	w, err := c.reverse.FetchBefore(ctx, before, c.windowSize)
	c.metrics.RecordFetch(len(w.Items), time.Since(started), err)
	c.logger.LogFetch(ctx, "before", len(w.Items), w.IsStart, w.IsFinish, err)
	return w, err
}

func (c *Cache[K, V]) acquireFetch(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.sem != nil {
		return c.sem.Acquire(ctx, 1)
	}
	return nil
}

func (c *Cache[K, V]) releaseFetch() {
	if c.sem != nil {
		c.sem.Release(1)
	}
}

// windowAdvanced reports whether a forward fetch anchored at cursor moved
// coverage past the cursor. A window that does not is a dead end for the
// loop: fetching again from the same anchor would return the same window.
func windowAdvanced[K cmp.Ordered, V any](w source.Window[K, V], cursor K) bool {
	return len(w.Items) > 0 && w.Items[len(w.Items)-1].Key > cursor
}

// windowRetreated is the backward mirror of windowAdvanced.
func windowRetreated[K cmp.Ordered, V any](w source.Window[K, V], cursor K) bool {
	return len(w.Items) > 0 && w.Items[0].Key < cursor
}
