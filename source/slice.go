package source

import (
	"cmp"
	"context"
	"slices"

	"github.com/hupe1980/rangecache/pageset"
)

// Slice is an in-memory Source over a fixed item slice. It is primarily a
// deterministic backing for tests and examples; it also implements
// ReverseSource.
type Slice[K cmp.Ordered, V any] struct {
	items []pageset.Item[K, V]
}

// NewSlice creates a Slice source. Items are sorted by key; the slice is
// copied and never modified afterwards.
func NewSlice[K cmp.Ordered, V any](items []pageset.Item[K, V]) *Slice[K, V] {
	out := make([]pageset.Item[K, V], len(items))
	copy(out, items)
	slices.SortStableFunc(out, func(a, b pageset.Item[K, V]) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return &Slice[K, V]{items: out}
}

// Fetch implements Source.
func (s *Slice[K, V]) Fetch(ctx context.Context, after *K, limit int) (Window[K, V], error) {
	if err := ctx.Err(); err != nil {
		return Window[K, V]{}, err
	}

	start := 0
	if after != nil {
		// At-or-after: re-delivering the anchor item is harmless, the
		// merge collapses duplicate keys.
		start, _ = slices.BinarySearchFunc(s.items, *after, func(it pageset.Item[K, V], k K) int {
			return cmp.Compare(it.Key, k)
		})
	}
	end := len(s.items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	w := Window[K, V]{
		Items:    s.items[start:end:end],
		IsStart:  after == nil,
		IsFinish: end == len(s.items),
	}
	if after != nil {
		// The slice proves nothing exists between after and the first
		// returned key, so widen the window bound accordingly.
		w.Min, w.HasMin = *after, true
	}
	return w, nil
}

// FetchBefore implements ReverseSource.
func (s *Slice[K, V]) FetchBefore(ctx context.Context, before *K, limit int) (Window[K, V], error) {
	if err := ctx.Err(); err != nil {
		return Window[K, V]{}, err
	}

	end := len(s.items)
	if before != nil {
		i, found := slices.BinarySearchFunc(s.items, *before, func(it pageset.Item[K, V], k K) int {
			return cmp.Compare(it.Key, k)
		})
		end = i
		if found {
			end = i + 1
		}
	}
	start := 0
	if limit > 0 && end-limit > start {
		start = end - limit
	}

	w := Window[K, V]{
		Items:    s.items[start:end:end],
		IsStart:  start == 0,
		IsFinish: before == nil,
	}
	if before != nil {
		w.Max, w.HasMax = *before, true
	}
	return w, nil
}
