package pageset

import (
	"cmp"
	"fmt"
	"iter"
	"sort"
	"strings"
)

// PagedSet is an ordered, non-overlapping collection of Pages. It owns the
// window merge algorithm and the range query algorithm.
//
// A PagedSet is immutable: every mutator returns a new instance and the
// receiver is never modified. The zero page collection is a valid empty set.
type PagedSet[K cmp.Ordered, V any] struct {
	pages []*Page[K, V] // sorted by Min, pairwise non-overlapping
	count int           // total items across pages
}

// New creates an empty PagedSet.
func New[K cmp.Ordered, V any]() *PagedSet[K, V] {
	return &PagedSet[K, V]{}
}

// FromPages builds a PagedSet from pre-built pages, validating the set
// invariants: pages sorted by Min and pairwise non-overlapping, at most one
// IsStart (on the first page) and one IsFinish (on the last page), and a
// zero-item page only as the sole page. Used when restoring snapshots.
func FromPages[K cmp.Ordered, V any](pages []*Page[K, V]) (*PagedSet[K, V], error) {
	count := 0
	for i, p := range pages {
		count += p.Count()
		if p.Count() == 0 {
			if len(pages) > 1 {
				return nil, fmt.Errorf("%w: empty page at %d in a set of %d", ErrPageOrder, i, len(pages))
			}
			if !p.IsSentinel() {
				return nil, fmt.Errorf("%w: empty page without both boundary flags", ErrBoundaryPlacement)
			}
		}
		if i > 0 {
			if prev := pages[i-1]; prev.max >= p.min {
				return nil, fmt.Errorf("%w: page %d [%v,%v] meets page %d [%v,%v]",
					ErrPageOrder, i-1, prev.min, prev.max, i, p.min, p.max)
			}
		}
		if p.isStart && i != 0 {
			return nil, fmt.Errorf("%w: start flag on page %d", ErrBoundaryPlacement, i)
		}
		if p.isFinish && i != len(pages)-1 {
			return nil, fmt.Errorf("%w: finish flag on page %d", ErrBoundaryPlacement, i)
		}
	}
	out := make([]*Page[K, V], len(pages))
	copy(out, pages)
	return &PagedSet[K, V]{pages: out, count: count}, nil
}

// AddRange merges a window of items into the set, deriving the window's
// [min,max] from the sorted extremes. isStart and isFinish are the source's
// claims that the window abuts the true start/end of the dataset.
//
// An empty window is a no-op, unless it is both isStart and isFinish and
// nothing is cached yet: that records the empty sentinel page meaning the
// entire dataset is known to be empty.
//
// The only failure mode is a *BoundaryError when a boundary claim is
// inconsistent with already-cached ranges.
func (s *PagedSet[K, V]) AddRange(items []Item[K, V], isStart, isFinish bool) (*PagedSet[K, V], error) {
	return s.addRange(items, nil, nil, isStart, isFinish)
}

// AddRangeBounds is AddRange with explicitly supplied window bounds, which
// may be wider than the extreme item keys.
func (s *PagedSet[K, V]) AddRangeBounds(items []Item[K, V], min, max K, isStart, isFinish bool) (*PagedSet[K, V], error) {
	return s.addRange(items, &min, &max, isStart, isFinish)
}

// AddRangeMin is AddRange with only the lower window bound supplied.
func (s *PagedSet[K, V]) AddRangeMin(items []Item[K, V], min K, isStart, isFinish bool) (*PagedSet[K, V], error) {
	return s.addRange(items, &min, nil, isStart, isFinish)
}

// AddRangeMax is AddRange with only the upper window bound supplied.
func (s *PagedSet[K, V]) AddRangeMax(items []Item[K, V], max K, isStart, isFinish bool) (*PagedSet[K, V], error) {
	return s.addRange(items, nil, &max, isStart, isFinish)
}

func (s *PagedSet[K, V]) addRange(items []Item[K, V], minPtr, maxPtr *K, isStart, isFinish bool) (*PagedSet[K, V], error) {
	sorted := normalize(items)

	if len(sorted) == 0 {
		if isStart && isFinish && len(s.pages) == 0 {
			return &PagedSet[K, V]{pages: []*Page[K, V]{NewPage[K, V](nil, true, true)}}, nil
		}
		return s, nil
	}

	min := sorted[0].Key
	if minPtr != nil && *minPtr < min {
		min = *minPtr
	}
	max := sorted[len(sorted)-1].Key
	if maxPtr != nil && *maxPtr > max {
		max = *maxPtr
	}

	// A boundary claim must be consistent with what is already cached: a
	// window claiming the dataset start cannot begin after the smallest
	// cached key, and symmetrically for the finish claim. This subsumes the
	// takeover rule for non-overlapping windows.
	if len(s.pages) > 0 && s.pages[0].Count() > 0 {
		if first := s.pages[0]; isStart && min > first.min {
			return nil, &BoundaryError{
				Claim:     "start",
				WindowMin: min, WindowMax: max,
				PageMin: first.min, PageMax: first.max,
			}
		}
		if last := s.pages[len(s.pages)-1]; isFinish && max < last.max {
			return nil, &BoundaryError{
				Claim:     "finish",
				WindowMin: min, WindowMax: max,
				PageMin: last.min, PageMax: last.max,
			}
		}
	}

	lo, hi := s.overlapRange(min, max)
	if lo < 0 {
		return s.insertPage(sorted, min, max, isStart, isFinish), nil
	}
	return s.mergeOverlap(sorted, min, max, isStart, isFinish, lo, hi), nil
}

// overlapRange returns the index range [lo,hi] of pages intersecting
// [min,max], or (-1,-1). A zero-item page represents knowledge about the
// whole dataset and always overlaps.
func (s *PagedSet[K, V]) overlapRange(min, max K) (int, int) {
	lo, hi := -1, -1
	for i, p := range s.pages {
		if p.Count() == 0 || (p.min <= max && min <= p.max) {
			if lo < 0 {
				lo = i
			}
			hi = i
		} else if lo >= 0 {
			break
		}
	}
	return lo, hi
}

// insertPage places a new page for a window that overlaps nothing. A
// boundary claim takes over from the previously flagged page, whose flag is
// cleared; claim validity was checked in addRange.
func (s *PagedSet[K, V]) insertPage(sorted []Item[K, V], min, max K, isStart, isFinish bool) *PagedSet[K, V] {
	pos := sort.Search(len(s.pages), func(i int) bool { return s.pages[i].min > max })

	out := make([]*Page[K, V], 0, len(s.pages)+1)
	out = append(out, s.pages[:pos]...)
	out = append(out, NewPageBounds(sorted, min, max, isStart, isFinish))
	out = append(out, s.pages[pos:]...)

	if isStart && len(out) > 1 && out[1].isStart {
		out[1] = out[1].WithStart(false)
	}
	if isFinish && len(out) > 1 && out[len(out)-2].isFinish {
		out[len(out)-2] = out[len(out)-2].WithFinish(false)
	}
	return &PagedSet[K, V]{pages: out, count: s.count + len(sorted)}
}

// mergeOverlap collapses pages[lo..hi] and the incoming window into a single
// page spanning the union of all ranges. The merged page's items are the
// union of every overlapped page's items with the incoming items (incoming
// wins on duplicate keys). IsStart comes from the first overlapped page OR
// the incoming claim, IsFinish from the last overlapped page OR the claim.
func (s *PagedSet[K, V]) mergeOverlap(sorted []Item[K, V], min, max K, isStart, isFinish bool, lo, hi int) *PagedSet[K, V] {
	first, last := s.pages[lo], s.pages[hi]

	newMin, newMax := min, max
	if first.Count() > 0 && first.min < newMin {
		newMin = first.min
	}
	if last.Count() > 0 && last.max > newMax {
		newMax = last.max
	}

	removed := 0
	base := first
	for i := lo + 1; i <= hi; i++ {
		removed += s.pages[i].Count()
		base = base.Merge(s.pages[i].items, newMin, newMax)
	}
	removed += first.Count()

	merged := base.Merge(sorted, newMin, newMax).
		withFlags(isStart || first.isStart, isFinish || last.isFinish)

	out := make([]*Page[K, V], 0, len(s.pages)-(hi-lo))
	out = append(out, s.pages[:lo]...)
	out = append(out, merged)
	out = append(out, s.pages[hi+1:]...)

	return &PagedSet[K, V]{pages: out, count: s.count - removed + merged.Count()}
}

// AppendToLatest appends a single item to the page with the greatest Min,
// creating one if the set is empty. This is the fast path for a dataset
// growing at its end; the item's key must lie at or beyond the latest page's
// range for the non-overlap invariant to hold.
func (s *PagedSet[K, V]) AppendToLatest(item Item[K, V]) *PagedSet[K, V] {
	if len(s.pages) == 0 {
		return &PagedSet[K, V]{
			pages: []*Page[K, V]{NewPage([]Item[K, V]{item}, false, false)},
			count: 1,
		}
	}
	last := s.pages[len(s.pages)-1]
	next := last.Append(item)

	out := make([]*Page[K, V], len(s.pages))
	copy(out, s.pages)
	out[len(out)-1] = next
	return &PagedSet[K, V]{pages: out, count: s.count - last.Count() + next.Count()}
}

// InvalidateFinish clears IsFinish on the page with the greatest Min. Used
// when the caller learns the dataset has grown beyond what was previously
// believed complete. No-op if no page carries the flag.
func (s *PagedSet[K, V]) InvalidateFinish() *PagedSet[K, V] {
	if len(s.pages) == 0 {
		return s
	}
	last := s.pages[len(s.pages)-1]
	if !last.isFinish {
		return s
	}
	out := make([]*Page[K, V], len(s.pages))
	copy(out, s.pages)
	out[len(out)-1] = last.WithFinish(false)
	return &PagedSet[K, V]{pages: out, count: s.count}
}

// Pages returns the pages in Min order.
// The returned slice is a copy; the pages themselves are immutable.
func (s *PagedSet[K, V]) Pages() []*Page[K, V] {
	out := make([]*Page[K, V], len(s.pages))
	copy(out, s.pages)
	return out
}

// MinPage returns the page with the smallest Min, or nil if the set is empty.
func (s *PagedSet[K, V]) MinPage() *Page[K, V] {
	if len(s.pages) == 0 {
		return nil
	}
	return s.pages[0]
}

// MaxPage returns the page with the greatest Min, or nil if the set is empty.
func (s *PagedSet[K, V]) MaxPage() *Page[K, V] {
	if len(s.pages) == 0 {
		return nil
	}
	return s.pages[len(s.pages)-1]
}

// Len returns the number of pages.
func (s *PagedSet[K, V]) Len() int { return len(s.pages) }

// ItemCount returns the total number of items across all pages.
func (s *PagedSet[K, V]) ItemCount() int { return s.count }

// All returns an iterator over every cached item in key order.
func (s *PagedSet[K, V]) All() iter.Seq[Item[K, V]] {
	return func(yield func(Item[K, V]) bool) {
		for _, p := range s.pages {
			for _, it := range p.items {
				if !yield(it) {
					return
				}
			}
		}
	}
}

// String implements fmt.Stringer for diagnostics.
func (s *PagedSet[K, V]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PagedSet{pages=%d items=%d", len(s.pages), s.count)
	for _, p := range s.pages {
		b.WriteString(" ")
		b.WriteString(p.String())
	}
	b.WriteString("}")
	return b.String()
}
