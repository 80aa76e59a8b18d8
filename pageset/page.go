package pageset

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Page is a contiguous, non-overlapping key-range window of cached items.
//
// A Page spans [Min,Max]; the bounds may be wider than the extreme item keys
// when the source supplied explicit window bounds. IsStart marks a page known
// to abut the true beginning of the logical dataset, IsFinish the true end.
//
// Pages are immutable. Every operation returns a replacement Page; item
// slices are shared between the old and new value where possible.
type Page[K cmp.Ordered, V any] struct {
	items    []Item[K, V] // sorted by Key, keys unique
	min, max K
	isStart  bool
	isFinish bool
	touched  time.Time
}

// NewPage builds a page from items, deriving [Min,Max] from the extreme keys.
// Items are sorted and de-duplicated (later duplicate wins).
//
// A page with no items is the empty sentinel: it is only meaningful with both
// isStart and isFinish set, recording that the entire dataset is known to be
// empty.
func NewPage[K cmp.Ordered, V any](items []Item[K, V], isStart, isFinish bool) *Page[K, V] {
	sorted := normalize(items)
	p := &Page[K, V]{
		items:    sorted,
		isStart:  isStart,
		isFinish: isFinish,
		touched:  time.Now(),
	}
	if len(sorted) > 0 {
		p.min = sorted[0].Key
		p.max = sorted[len(sorted)-1].Key
	}
	return p
}

// NewPageBounds builds a page with explicitly supplied [Min,Max] bounds.
// The bounds must cover all item keys.
func NewPageBounds[K cmp.Ordered, V any](items []Item[K, V], min, max K, isStart, isFinish bool) *Page[K, V] {
	sorted := normalize(items)
	if len(sorted) > 0 {
		if sorted[0].Key < min {
			min = sorted[0].Key
		}
		if sorted[len(sorted)-1].Key > max {
			max = sorted[len(sorted)-1].Key
		}
	}
	return &Page[K, V]{
		items:    sorted,
		min:      min,
		max:      max,
		isStart:  isStart,
		isFinish: isFinish,
		touched:  time.Now(),
	}
}

// Items returns the page's items in key order.
// The returned slice must be treated as read-only.
func (p *Page[K, V]) Items() []Item[K, V] { return p.items }

// Count returns the number of items in the page.
func (p *Page[K, V]) Count() int { return len(p.items) }

// Min returns the lower bound of the page's key range.
// Meaningless for the empty sentinel.
func (p *Page[K, V]) Min() K { return p.min }

// Max returns the upper bound of the page's key range.
// Meaningless for the empty sentinel.
func (p *Page[K, V]) Max() K { return p.max }

// IsStart reports whether the page abuts the true start of the dataset.
func (p *Page[K, V]) IsStart() bool { return p.isStart }

// IsFinish reports whether the page abuts the true end of the dataset.
func (p *Page[K, V]) IsFinish() bool { return p.isFinish }

// IsSentinel reports whether the page is the empty sentinel meaning
// "the entire dataset is known to be empty".
func (p *Page[K, V]) IsSentinel() bool {
	return len(p.items) == 0 && p.isStart && p.isFinish
}

// Touched returns the time the page was last created or merged.
// External eviction policies may use it; the pageset itself never evicts.
func (p *Page[K, V]) Touched() time.Time { return p.touched }

// Append returns a page with item inserted into the sorted item set,
// widening [Min,Max] if needed. An existing item with the same key is
// replaced.
func (p *Page[K, V]) Append(item Item[K, V]) *Page[K, V] {
	i, found := slices.BinarySearchFunc(p.items, item.Key, func(it Item[K, V], k K) int {
		return cmp.Compare(it.Key, k)
	})
	items := make([]Item[K, V], 0, len(p.items)+1)
	items = append(items, p.items[:i]...)
	items = append(items, item)
	if found {
		items = append(items, p.items[i+1:]...)
	} else {
		items = append(items, p.items[i:]...)
	}

	next := &Page[K, V]{
		items:    items,
		min:      p.min,
		max:      p.max,
		isStart:  p.isStart,
		isFinish: p.isFinish,
		touched:  time.Now(),
	}
	if len(p.items) == 0 {
		next.min = item.Key
		next.max = item.Key
		return next
	}
	if item.Key < next.min {
		next.min = item.Key
	}
	if item.Key > next.max {
		next.max = item.Key
	}
	return next
}

// Merge returns a page whose item set is the union of the existing and
// incoming items, with [Min,Max] set to the supplied bounds. The incoming
// slice must be sorted with unique keys; on a shared key the incoming item
// wins.
func (p *Page[K, V]) Merge(incoming []Item[K, V], newMin, newMax K) *Page[K, V] {
	return &Page[K, V]{
		items:    mergeSorted(p.items, incoming),
		min:      newMin,
		max:      newMax,
		isStart:  p.isStart,
		isFinish: p.isFinish,
		touched:  time.Now(),
	}
}

// WithStart returns a copy of the page with the IsStart flag replaced.
func (p *Page[K, V]) WithStart(start bool) *Page[K, V] {
	if p.isStart == start {
		return p
	}
	next := *p
	next.isStart = start
	return &next
}

// WithFinish returns a copy of the page with the IsFinish flag replaced.
func (p *Page[K, V]) WithFinish(finish bool) *Page[K, V] {
	if p.isFinish == finish {
		return p
	}
	next := *p
	next.isFinish = finish
	return &next
}

// withFlags returns a copy with both flags replaced.
func (p *Page[K, V]) withFlags(start, finish bool) *Page[K, V] {
	if p.isStart == start && p.isFinish == finish {
		return p
	}
	next := *p
	next.isStart = start
	next.isFinish = finish
	return &next
}

// ItemsAfter returns the sub-range of items with keys at or after key.
// The returned slice aliases the page's items and must be treated as
// read-only.
func (p *Page[K, V]) ItemsAfter(key K) []Item[K, V] {
	i, _ := slices.BinarySearchFunc(p.items, key, func(it Item[K, V], k K) int {
		return cmp.Compare(it.Key, k)
	})
	return p.items[i:]
}

// ItemsBefore returns the sub-range of items with keys at or before key.
// The returned slice aliases the page's items and must be treated as
// read-only.
func (p *Page[K, V]) ItemsBefore(key K) []Item[K, V] {
	i, found := slices.BinarySearchFunc(p.items, key, func(it Item[K, V], k K) int {
		return cmp.Compare(it.Key, k)
	})
	if found {
		i++
	}
	return p.items[:i]
}

// covers reports whether key falls inside the page's [Min,Max] range.
// The empty sentinel covers every key.
func (p *Page[K, V]) covers(key K) bool {
	if len(p.items) == 0 {
		return p.isStart && p.isFinish
	}
	return p.min <= key && key <= p.max
}

// String implements fmt.Stringer for diagnostics.
func (p *Page[K, V]) String() string {
	return fmt.Sprintf("Page[%v,%v] n=%d start=%t finish=%t", p.min, p.max, len(p.items), p.isStart, p.isFinish)
}
