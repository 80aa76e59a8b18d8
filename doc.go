// Package rangecache provides a persistent, immutable paged range cache for
// ordered, keyed datasets fetched incrementally from paginated sources.
//
// The core structure is pageset.PagedSet: an ordered collection of
// non-overlapping pages, each a window of cached items, that answers range
// queries while tracking whether the cached data provably covers the true
// start and/or end of the logical dataset. Every mutation produces a new
// snapshot; readers never lock.
//
// # Quick Start
//
// Standalone, without a backing source:
//
//	set := pageset.New[int, string]()
//	set, _ = set.AddRange(items, true, false) // first window, claims the dataset start
//	res := set.ReadAfter(42, 10)
//	if !res.Complete {
//	    // fetch more from the backing source, then AddRange again
//	}
//
// With a backing source and automatic fetch-on-miss:
//
//	src := s3source.New(client, "my-bucket", "logs/")
//	cache := rangecache.New[string, s3source.Object](
//	    rangecache.WithSource[string, s3source.Object](src),
//	    rangecache.WithWindowSize[string, s3source.Object](1000),
//	)
//	res, err := cache.ReadAfter(ctx, "2026-08", 100)
//
// # Concurrency
//
// A Cache publishes snapshots through an atomic compare-and-swap retry loop
// (see atomicref): writers never block readers, readers never observe a
// partially updated set, and any number of goroutines may query the same
// snapshot simultaneously.
//
// # Serialization
//
// The cache itself is purely in-memory. The snapshot package layers an
// optional self-describing, optionally compressed serialization format on
// top, including S3 upload/download helpers.
package rangecache
