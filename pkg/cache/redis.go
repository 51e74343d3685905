package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/proxyintel/client-go/pkg/query"
)

// Redis implements Provider over a Redis backend so multiple processes
// can share one result cache. Entries carry their max age as a Redis
// TTL, so eviction is handled by the server and no sweep is needed
// here.
//
// Any backend failure degrades to a cache miss: it is logged and
// counted, never surfaced to the caller.
type Redis struct {
	client *redis.Client
	maxAge time.Duration
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed cache. A non-positive maxAge selects
// DefaultMaxAge.
func NewRedis(client *redis.Client, maxAge time.Duration) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Redis{
		client: client,
		maxAge: maxAge,
		logger: log.With().Str("component", "redis-cache").Logger(),
	}
}

// GetOne returns the cached result for ip under an equivalent options
// set, or ok=false on a miss or backend failure.
func (r *Redis) GetOne(ctx context.Context, ip string, opts query.Options) (query.IPResult, bool) {
	var result query.IPResult

	data, err := r.client.Get(ctx, Key{IP: ip, Options: opts}.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			CacheErrors.WithLabelValues("get").Inc()
			r.logger.Warn().Err(err).Str("ip", ip).Msg("Redis get failed, treating as miss")
		}
		CacheMisses.WithLabelValues("redis").Inc()
		return result, false
	}

	if err := json.Unmarshal(data, &result); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		r.logger.Warn().Err(err).Str("ip", ip).Msg("Corrupt cache entry, treating as miss")
		return query.IPResult{}, false
	}

	CacheHits.WithLabelValues("redis").Inc()
	return result, true
}

// GetMany fetches all requested addresses in one MGET. Addresses with
// no valid entry are absent from the returned map.
func (r *Redis) GetMany(ctx context.Context, ips []string, opts query.Options) map[string]query.IPResult {
	out := make(map[string]query.IPResult)
	if len(ips) == 0 {
		return out
	}

	keys := make([]string, len(ips))
	for i, ip := range ips {
		keys[i] = Key{IP: ip, Options: opts}.String()
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		r.logger.Warn().Err(err).Int("ips", len(ips)).Msg("Redis mget failed, treating all as misses")
		CacheMisses.WithLabelValues("redis").Add(float64(len(ips)))
		return out
	}

	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var result query.IPResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			CacheErrors.WithLabelValues("get").Inc()
			r.logger.Warn().Err(err).Str("ip", ips[i]).Msg("Corrupt cache entry, skipping")
			continue
		}
		out[ips[i]] = result
	}

	CacheHits.WithLabelValues("redis").Add(float64(len(out)))
	CacheMisses.WithLabelValues("redis").Add(float64(len(ips) - len(out)))
	return out
}

// SetMany stores each result under opts in one pipeline, with the max
// age as the entry TTL.
func (r *Redis) SetMany(ctx context.Context, results map[string]query.IPResult, opts query.Options) {
	if len(results) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for ip, result := range results {
		data, err := json.Marshal(result)
		if err != nil {
			CacheErrors.WithLabelValues("set").Inc()
			r.logger.Warn().Err(err).Str("ip", ip).Msg("Marshal cache entry failed, skipping")
			continue
		}
		pipe.Set(ctx, Key{IP: ip, Options: opts}.String(), data, r.maxAge)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		r.logger.Warn().Err(err).Int("results", len(results)).Msg("Redis pipeline set failed")
	}
}
