package rangecache

import (
	"cmp"

	"golang.org/x/time/rate"

	"github.com/hupe1980/rangecache/source"
)

type options[K cmp.Ordered, V any] struct {
	source        source.Source[K, V]
	logger        *Logger
	metrics       MetricsCollector
	limiter       *rate.Limiter
	maxConcurrent int64
	windowSize    int
	maxRounds     int
}

// Option configures Cache constructor behavior.
type Option[K cmp.Ordered, V any] func(*options[K, V])

// WithSource configures the backing window provider. Without a source the
// cache is in manual mode: reads answer from the current snapshot only and
// windows are pushed in via AddWindow/Add.
func WithSource[K cmp.Ordered, V any](s source.Source[K, V]) Option[K, V] {
	return func(o *options[K, V]) {
		o.source = s
	}
}

// WithLogger configures structured logging. Defaults to a no-op logger.
func WithLogger[K cmp.Ordered, V any](l *Logger) Option[K, V] {
	return func(o *options[K, V]) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector configures metrics collection.
// Defaults to NoopMetricsCollector.
func WithMetricsCollector[K cmp.Ordered, V any](mc MetricsCollector) Option[K, V] {
	return func(o *options[K, V]) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

// WithFetchRateLimit bounds source fetches to perSec windows per second with
// the given burst. Zero or negative perSec disables rate limiting (default).
func WithFetchRateLimit[K cmp.Ordered, V any](perSec float64, burst int) Option[K, V] {
	return func(o *options[K, V]) {
		if perSec > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithMaxConcurrentFetches bounds the number of in-flight source fetches
// across all readers. Zero or negative disables the bound (default).
func WithMaxConcurrentFetches[K cmp.Ordered, V any](n int64) Option[K, V] {
	return func(o *options[K, V]) {
		o.maxConcurrent = n
	}
}

// WithWindowSize sets the item count requested per source fetch.
// Defaults to 256.
func WithWindowSize[K cmp.Ordered, V any](n int) Option[K, V] {
	return func(o *options[K, V]) {
		if n > 0 {
			o.windowSize = n
		}
	}
}

// WithMaxFetchRounds caps how many fetch-and-merge rounds a single read may
// perform before returning its (possibly incomplete) answer. Defaults to 32.
func WithMaxFetchRounds[K cmp.Ordered, V any](n int) Option[K, V] {
	return func(o *options[K, V]) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

func defaultOptions[K cmp.Ordered, V any]() options[K, V] {
	return options[K, V]{
		logger:     NoopLogger(),
		metrics:    NoopMetricsCollector{},
		windowSize: 256,
		maxRounds:  32,
	}
}
