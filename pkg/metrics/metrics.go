// Package metrics provides the centralized Prometheus metrics registry
// for the proxy detection client. All metrics are defined in their
// respective packages (client, cache, quota) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Query Metrics (pkg/client):
//   - proxyintel_lookups_total{outcome} (Counter): Queries by outcome
//     (ok, cache_only, validation_error, remote_error, decode_error, quota_blocked)
//   - proxyintel_remote_request_duration_seconds (Histogram): Remote round trip duration
//   - proxyintel_addresses_total{origin} (Counter): Addresses resolved by origin (cache, remote)
//
// Retry Metrics (pkg/client):
//   - proxyintel_retries_total (Counter): Remote lookup retry attempts
//   - proxyintel_retry_backoff_seconds (Histogram): Backoff duration before retries
//   - proxyintel_retry_exhausted_total (Counter): Queries that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - proxyintel_cache_hits_total{provider} (Counter): Cache hits by provider (memory, redis)
//   - proxyintel_cache_misses_total{provider} (Counter): Cache misses by provider
//   - proxyintel_cache_evictions_total (Counter): Entries discarded after max age
//   - proxyintel_cache_entries (Gauge): Current in-memory entry count
//   - proxyintel_cache_errors_total{operation} (Counter): Backend operation errors
//
// Quota Metrics (pkg/quota):
//   - proxyintel_quota_used (Gauge): Queries used against the daily allowance
//   - proxyintel_quota_blocks_total (Counter): Remote calls blocked by the allowance
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(proxyintel_cache_hits_total[5m])) /
//   (sum(rate(proxyintel_cache_hits_total[5m])) + sum(rate(proxyintel_cache_misses_total[5m])))
//
//   # Share of queries answered without a remote call
//   rate(proxyintel_lookups_total{outcome="cache_only"}[5m]) /
//   sum(rate(proxyintel_lookups_total[5m]))
//
//   # P95 Remote Latency
//   histogram_quantile(0.95, rate(proxyintel_remote_request_duration_seconds_bucket[5m]))
