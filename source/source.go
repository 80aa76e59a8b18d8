// Package source defines the window provider contract of the paged range
// cache: an external, paginated data source that delivers batches of ordered
// items together with claims about the dataset's boundaries.
package source

import (
	"cmp"
	"context"

	"github.com/hupe1980/rangecache/pageset"
)

// Window is one batch of items with an associated key range, as delivered by
// one fetch from a backing source. It is the argument shape for the pageset
// AddRange family.
type Window[K cmp.Ordered, V any] struct {
	Items []pageset.Item[K, V]

	// Min and Max are explicit window bounds, valid only when the
	// corresponding Has flag is set. Without explicit bounds the window's
	// range is derived from the extreme item keys.
	Min, Max       K
	HasMin, HasMax bool

	// IsStart and IsFinish are the source's claims that the window abuts
	// the true start/end of the logical dataset.
	IsStart  bool
	IsFinish bool
}

// Source delivers windows of a dataset in ascending key order.
//
// Implementations must be safe for concurrent use. Fetch failures are
// surfaced to the caller; the cache does not retry.
type Source[K cmp.Ordered, V any] interface {
	// Fetch returns the window of up to limit items at or after the given
	// key. A nil after fetches from the logical start of the dataset (the
	// returned window should claim IsStart). limit <= 0 lets the source
	// pick its own window size.
	//
	// Explicit window bounds are coverage claims: a source may only
	// report HasMin when every item at or after the anchor up to the
	// last delivered key is in the window, including an item at the
	// anchor key itself. Backends with an exclusive anchor (for example
	// S3's StartAfter) must resolve the anchor separately before
	// claiming it as a bound.
	Fetch(ctx context.Context, after *K, limit int) (Window[K, V], error)
}

// ReverseSource is an optional extension for sources that can also page
// backwards from the logical end.
type ReverseSource[K cmp.Ordered, V any] interface {
	Source[K, V]

	// FetchBefore returns the window of up to limit items at or before
	// the given key, in ascending key order. A nil before fetches from the
	// logical end (the returned window should claim IsFinish). The same
	// bound-soundness rule as Fetch applies to HasMax claims.
	FetchBefore(ctx context.Context, before *K, limit int) (Window[K, V], error)
}
