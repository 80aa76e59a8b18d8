package pageset

import (
	"cmp"
	"sort"
)

// QueryResult is the answer to a range query: a sequence of items in key
// order plus a completeness verdict. Complete distinguishes "this is
// everything" from "this is what is cached, there may be more".
type QueryResult[K cmp.Ordered, V any] struct {
	Items    []Item[K, V]
	Complete bool
}

func emptyResult[K cmp.Ordered, V any](complete bool) QueryResult[K, V] {
	return QueryResult[K, V]{Complete: complete}
}

// ReadAfter returns the cached items with keys at or after key.
//
// With count > 0 the result is truncated to count items and Complete
// reports whether the requested count was satisfied. With count <= 0 all
// covered items are returned and Complete reports whether the covering page
// carries IsFinish.
//
// When no page covers the key, the result is empty: Complete if the key
// provably lies beyond the end of the dataset (past a finish-flagged page,
// or the set is the empty sentinel), incomplete otherwise. Queries never
// fail; absence of cached data is always expressed via Complete=false.
func (s *PagedSet[K, V]) ReadAfter(key K, count int) QueryResult[K, V] {
	if len(s.pages) == 0 {
		return emptyResult[K, V](false)
	}
	if s.pages[0].IsSentinel() {
		return emptyResult[K, V](true)
	}

	if p := s.pageCovering(key); p != nil {
		items := p.ItemsAfter(key)
		if count > 0 {
			if len(items) >= count {
				return QueryResult[K, V]{Items: items[:count:count], Complete: true}
			}
			return QueryResult[K, V]{Items: items}
		}
		return QueryResult[K, V]{Items: items, Complete: p.isFinish}
	}

	if last := s.pages[len(s.pages)-1]; last.Count() > 0 && key > last.max && last.isFinish {
		return emptyResult[K, V](true)
	}
	return emptyResult[K, V](false)
}

// ReadBefore returns the cached items with keys at or before key, in key
// order. With count > 0 the result is the count items closest to key.
//
// Completeness mirrors ReadAfter with IsStart taking the role of IsFinish:
// an empty result is Complete only when the key provably lies before the
// start of the dataset.
func (s *PagedSet[K, V]) ReadBefore(key K, count int) QueryResult[K, V] {
	if len(s.pages) == 0 {
		return emptyResult[K, V](false)
	}
	if s.pages[0].IsSentinel() {
		return emptyResult[K, V](true)
	}

	if p := s.pageCovering(key); p != nil {
		items := p.ItemsBefore(key)
		if count > 0 {
			if len(items) >= count {
				return QueryResult[K, V]{Items: items[len(items)-count:], Complete: true}
			}
			return QueryResult[K, V]{Items: items}
		}
		return QueryResult[K, V]{Items: items, Complete: p.isStart}
	}

	if first := s.pages[0]; first.Count() > 0 && key < first.min && first.isStart {
		return emptyResult[K, V](true)
	}
	return emptyResult[K, V](false)
}

// ReadFromStart reads from the logical start of the dataset. A non-empty
// answer requires the minimum page to carry IsStart; otherwise the true
// first items may not be cached yet and the result is empty-incomplete.
func (s *PagedSet[K, V]) ReadFromStart(count int) QueryResult[K, V] {
	if len(s.pages) == 0 {
		return emptyResult[K, V](false)
	}
	if s.pages[0].IsSentinel() {
		return emptyResult[K, V](true)
	}

	first := s.pages[0]
	if !first.isStart {
		return emptyResult[K, V](false)
	}
	items := first.items
	if count > 0 {
		if len(items) >= count {
			return QueryResult[K, V]{Items: items[:count:count], Complete: true}
		}
		return QueryResult[K, V]{Items: items}
	}
	return QueryResult[K, V]{Items: items, Complete: first.isFinish}
}

// ReadFromEnd reads from the logical end of the dataset, returning the last
// cached items in key order. A non-empty answer requires the maximum page to
// carry IsFinish.
func (s *PagedSet[K, V]) ReadFromEnd(count int) QueryResult[K, V] {
	if len(s.pages) == 0 {
		return emptyResult[K, V](false)
	}
	if s.pages[0].IsSentinel() {
		return emptyResult[K, V](true)
	}

	last := s.pages[len(s.pages)-1]
	if !last.isFinish {
		return emptyResult[K, V](false)
	}
	items := last.items
	if count > 0 {
		if len(items) >= count {
			return QueryResult[K, V]{Items: items[len(items)-count:], Complete: true}
		}
		return QueryResult[K, V]{Items: items}
	}
	return QueryResult[K, V]{Items: items, Complete: last.isStart}
}

// pageCovering returns the page whose [Min,Max] contains key, or nil.
func (s *PagedSet[K, V]) pageCovering(key K) *Page[K, V] {
	i := sort.Search(len(s.pages), func(i int) bool { return s.pages[i].min > key })
	if i == 0 {
		return nil
	}
	p := s.pages[i-1]
	if p.Count() > 0 && p.covers(key) {
		return p
	}
	return nil
}
