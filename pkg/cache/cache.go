// Package cache provides result caching for proxy detection queries.
//
// A cache entry is keyed by the pair (address, options equivalence
// class): a record stored under one flag set never satisfies a lookup
// under a different one, because the stored record lacks the fields the
// other flag set would have requested. Entries expire after a
// configurable max age.
//
// Two providers ship with the library:
//
//   - Memory: the in-process reference implementation with a
//     sweep-on-access eviction policy.
//   - Redis: the same contract over a Redis backend, for cache sharing
//     across processes.
//
// Provider failures never fail a query. A provider that cannot answer
// behaves like an empty cache: the client simply treats every address
// as a miss and fetches remotely.
package cache

import (
	"context"
	"time"

	"github.com/proxyintel/client-go/pkg/query"
)

// DefaultMaxAge is the entry lifetime used when none is configured.
const DefaultMaxAge = time.Hour

// Provider is the capability contract a cache backend must satisfy.
// Implementations may be called concurrently from multiple in-flight
// queries and must guard their storage accordingly.
type Provider interface {
	// GetOne returns the cached result for ip under an options set
	// equivalent to opts, or ok=false when no unexpired match exists.
	GetOne(ctx context.Context, ip string, opts query.Options) (query.IPResult, bool)

	// GetMany returns a result per requested address for which an
	// unexpired, options-equivalent record exists. Addresses with no
	// valid entry are simply absent from the returned map.
	GetMany(ctx context.Context, ips []string, opts query.Options) map[string]query.IPResult

	// SetMany records each result under opts with the current
	// timestamp. Existing records for the same key are not removed
	// eagerly; stale entries are reconciled by eviction.
	SetMany(ctx context.Context, results map[string]query.IPResult, opts query.Options)
}
