// Package client implements the proxy detection client: cache-aware
// query orchestration over a remote lookup service.
//
// A query partitions its addresses into cache hits and misses, fetches
// only the misses remotely, writes the fresh results back to the cache
// and merges both sets into one response. When every address is served
// from cache no remote call happens at all.
package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/proxyintel/client-go/pkg/cache"
	"github.com/proxyintel/client-go/pkg/query"
	"github.com/proxyintel/client-go/pkg/quota"
)

// DefaultHost is the detection service queried when none is configured.
const DefaultHost = "proxycheck.io"

// Prometheus metrics for client operations.
var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxyintel_lookups_total",
		Help: "Total detection queries by outcome",
	}, []string{"outcome"}) // "ok", "cache_only", "validation_error", "remote_error", "decode_error", "quota_blocked"

	remoteRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proxyintel_remote_request_duration_seconds",
		Help:    "Remote lookup round trip duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	addressesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxyintel_addresses_total",
		Help: "Total addresses resolved by origin",
	}, []string{"origin"}) // "cache", "remote"
)

// Config holds the client configuration.
type Config struct {
	// Host of the detection service. Defaults to DefaultHost.
	Host string

	// APIKey authenticates against the service. Empty runs on the
	// anonymous allowance.
	APIKey string

	// Cache is the optional result cache. nil disables caching: every
	// address is fetched remotely on every query.
	Cache cache.Provider

	// Quota optionally gates remote calls against a daily allowance.
	Quota *quota.Tracker

	// HTTPTimeout bounds a single remote call.
	HTTPTimeout time.Duration

	// Retry configures backoff for transient remote failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration with an in-memory
// cache holding entries for an hour.
func DefaultConfig(apiKey string) Config {
	return Config{
		Host:        DefaultHost,
		APIKey:      apiKey,
		Cache:       cache.NewMemory(cache.DefaultMaxAge),
		HTTPTimeout: 30 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// Client resolves whether IP addresses are proxies or VPN exits.
type Client struct {
	fetcher Fetcher
	cache   cache.Provider
	quota   *quota.Tracker
	config  Config
	logger  zerolog.Logger
}

// New creates a detection client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "proxyintel-client").Logger()

	return &Client{
		fetcher: &httpFetcher{
			httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
			host:       cfg.Host,
			apiKey:     cfg.APIKey,
			logger:     logger,
		},
		cache:  cfg.Cache,
		quota:  cfg.Quota,
		config: cfg,
		logger: logger,
	}, nil
}

// Check resolves the given addresses, serving what it can from cache
// and fetching the rest in one remote call. Duplicates in ips collapse
// to one logical address; the returned result holds exactly one entry
// per distinct address.
//
// tag is an optional free-form label carried through to the service for
// its query log.
func (c *Client) Check(ctx context.Context, ips []string, opts query.Options, tag string) (*query.Result, error) {
	start := time.Now()

	targets, err := validateTargets(ips)
	if err != nil {
		lookupsTotal.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	// Step 1: serve what we can from cache.
	var hits map[string]query.IPResult
	if c.cache != nil {
		hits = c.cache.GetMany(ctx, targets, opts)
		for ip, r := range hits {
			r.IsCacheHit = true
			hits[ip] = r
		}
		addressesTotal.WithLabelValues("cache").Add(float64(len(hits)))
	}

	missing := make([]string, 0, len(targets)-len(hits))
	for _, ip := range targets {
		if _, ok := hits[ip]; !ok {
			missing = append(missing, ip)
		}
	}

	// Step 2: everything cached, no remote call needed. The node label
	// and query time are synthetic: they describe the cache lookup, not
	// a remote round trip, and FromCacheOnly flags that.
	if len(missing) == 0 && len(hits) > 0 {
		res := &query.Result{
			Status:        query.StatusOK,
			FromCacheOnly: true,
			Results:       hits,
		}
		if opts.ReportNode {
			res.Node = query.NodeCacheOnly
		}
		if opts.ReportTime {
			res.QueryTime = time.Since(start)
		}
		c.logger.Debug().Int("ips", len(hits)).Msg("Query served entirely from cache")
		lookupsTotal.WithLabelValues("cache_only").Inc()
		return res, nil
	}

	// Step 3: gate the remote call against the daily allowance.
	if c.quota != nil {
		allowed, err := c.quota.Allow(ctx, len(missing))
		if err != nil {
			c.logger.Warn().Err(err).Msg("Quota check failed, allowing request")
		} else if !allowed {
			lookupsTotal.WithLabelValues("quota_blocked").Inc()
			return nil, fmt.Errorf("%w: %d addresses requested", ErrQuotaExceeded, len(missing))
		}
	}

	// Step 4: one remote call for exactly the miss set.
	var raw []byte
	remoteStart := time.Now()
	err = retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		var ferr error
		raw, ferr = c.fetcher.Fetch(ctx, missing, opts, tag)
		return ferr
	})
	remoteRequestDuration.Observe(time.Since(remoteStart).Seconds())
	if err != nil {
		lookupsTotal.WithLabelValues("remote_error").Inc()
		return nil, err
	}

	res, err := Decode(raw)
	if err != nil {
		lookupsTotal.WithLabelValues("decode_error").Inc()
		return nil, err
	}
	addressesTotal.WithLabelValues("remote").Add(float64(len(res.Results)))

	if c.quota != nil {
		if err := c.quota.Record(ctx, len(missing)); err != nil {
			c.logger.Warn().Err(err).Msg("Quota update failed")
		}
	}

	// Step 5: write fresh results back, best effort.
	if c.cache != nil && len(res.Results) > 0 {
		c.cache.SetMany(ctx, res.Results, opts)
	}

	// Step 6: merge. Freshly fetched values win over cache on conflict.
	for ip, r := range hits {
		if _, ok := res.Results[ip]; !ok {
			res.Results[ip] = r
		}
	}

	// Every requested address gets exactly one entry. An address the
	// service silently dropped is reported as a per-address error rather
	// than truncating the result set.
	for _, ip := range targets {
		if _, ok := res.Results[ip]; !ok {
			res.Results[ip] = query.IPResult{
				ErrorMessage: "no result returned by detection service",
			}
		}
	}

	c.logger.Debug().
		Int("ips", len(targets)).
		Int("cache_hits", len(hits)).
		Int("fetched", len(missing)).
		Str("status", string(res.Status)).
		Msg("Query completed")
	lookupsTotal.WithLabelValues("ok").Inc()

	return res, nil
}

// CheckOne resolves a single address.
func (c *Client) CheckOne(ctx context.Context, ip string, opts query.Options, tag string) (query.IPResult, error) {
	res, err := c.Check(ctx, []string{ip}, opts, tag)
	if err != nil {
		return query.IPResult{}, err
	}
	return res.Results[ip], nil
}

// validateTargets rejects empty and malformed input and collapses
// duplicates while preserving order.
func validateTargets(ips []string) ([]string, error) {
	if len(ips) == 0 {
		return nil, ErrEmptyQuery
	}

	targets := make([]string, 0, len(ips))
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if net.ParseIP(ip) == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
		}
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		targets = append(targets, ip)
	}
	return targets, nil
}

// SetFetcher sets a custom remote lookup implementation (for testing).
func (c *Client) SetFetcher(f Fetcher) {
	c.fetcher = f
}
