package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by provider (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyintel_cache_hits_total",
			Help: "Total number of detection results served from cache",
		},
		[]string{"provider"},
	)

	// CacheMisses tracks cache misses by provider
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyintel_cache_misses_total",
			Help: "Total number of cache lookups that found no valid entry",
		},
		[]string{"provider"},
	)

	// CacheEvictions tracks entries discarded by the eviction sweep
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxyintel_cache_evictions_total",
			Help: "Total number of cache entries discarded after exceeding max age",
		},
	)

	// CacheEntries tracks the current entry count of the memory provider
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxyintel_cache_entries",
			Help: "Current number of entries held by the in-memory cache",
		},
	)

	// CacheErrors tracks backend operation errors (redis only; the
	// memory provider cannot fail)
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyintel_cache_errors_total",
			Help: "Total number of cache backend operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)
