package rangecache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordRead is called after each read operation against a snapshot.
	// returned is the number of items in the answer, complete its verdict.
	RecordRead(returned int, complete bool, duration time.Duration)

	// RecordFetch is called after each window fetch from the backing
	// source. count is the number of items delivered, err is nil on
	// success.
	RecordFetch(count int, duration time.Duration, err error)

	// RecordMerge is called after each window merge into the set.
	// pagesBefore and pagesAfter are the page counts around the merge;
	// err is nil on success.
	RecordMerge(pagesBefore, pagesAfter int, err error)

	// RecordPublishRetry is called once per compare-and-swap retry when
	// publishing a new snapshot loses a race.
	RecordPublishRetry()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRead(int, bool, time.Duration)   {}
func (NoopMetricsCollector) RecordFetch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordMerge(int, int, error)           {}
func (NoopMetricsCollector) RecordPublishRetry()                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ReadCount       atomic.Int64
	ReadIncomplete  atomic.Int64
	ReadTotalNanos  atomic.Int64
	FetchCount      atomic.Int64
	FetchErrors     atomic.Int64
	FetchItems      atomic.Int64
	FetchTotalNanos atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	PublishRetries  atomic.Int64
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(returned int, complete bool, duration time.Duration) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if !complete {
		b.ReadIncomplete.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(count int, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchItems.Add(int64(count))
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(pagesBefore, pagesAfter int, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordPublishRetry implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublishRetry() {
	b.PublishRetries.Add(1)
}

// Stats is a snapshot of BasicMetricsCollector state.
type Stats struct {
	ReadCount      int64
	ReadIncomplete int64
	ReadAvgNanos   int64
	FetchCount     int64
	FetchErrors    int64
	FetchItems     int64
	FetchAvgNanos  int64
	MergeCount     int64
	MergeErrors    int64
	PublishRetries int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() Stats {
	s := Stats{
		ReadCount:      b.ReadCount.Load(),
		ReadIncomplete: b.ReadIncomplete.Load(),
		FetchCount:     b.FetchCount.Load(),
		FetchErrors:    b.FetchErrors.Load(),
		FetchItems:     b.FetchItems.Load(),
		MergeCount:     b.MergeCount.Load(),
		MergeErrors:    b.MergeErrors.Load(),
		PublishRetries: b.PublishRetries.Load(),
	}
	if s.ReadCount > 0 {
		s.ReadAvgNanos = b.ReadTotalNanos.Load() / s.ReadCount
	}
	if s.FetchCount > 0 {
		s.FetchAvgNanos = b.FetchTotalNanos.Load() / s.FetchCount
	}
	return s
}
