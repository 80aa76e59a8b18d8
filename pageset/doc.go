// Package pageset implements a persistent, immutable paged range cache.
//
// A PagedSet accumulates windows ("pages") of ordered, keyed items fetched
// incrementally from an external paginated source, and answers range queries
// while tracking whether the cached data provably covers the true start
// and/or end of the logical dataset.
//
// Every mutator returns a new PagedSet; the receiver is never modified.
// Unaffected pages are shared structurally between snapshots, so any number
// of goroutines may query a snapshot concurrently without locking. Use
// atomicref.Ref to publish the latest snapshot between writers and readers.
package pageset
