package audiocache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments a CachePool with Prometheus counters. It never
// influences caching decisions — a nil *Metrics on CachePool simply
// disables instrumentation. Grounded in a disk-backed LRU cache that
// instruments the same hit/miss/eviction counters with
// prometheus/client_golang.
type Metrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	bytesCached prometheus.Counter
}

// NewMetrics registers the cache's counters against reg and returns a
// Metrics ready to pass to NewCachePool. reg may be any
// prometheus.Registerer, including a fresh prometheus.NewRegistry() in
// tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocache_hits_total",
			Help: "Number of Fetch calls served without an upstream fetch.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocache_misses_total",
			Help: "Number of Fetch calls that triggered an upstream fetch.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocache_evictions_total",
			Help: "Number of items removed by LRU eviction or explicit invalidation.",
		}),
		bytesCached: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocache_bytes_cached_total",
			Help: "Total bytes written to cache files by background copiers.",
		}),
	}
}
