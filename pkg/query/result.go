package query

import (
	"strings"
	"time"
)

// Status is the overall outcome reported by the detection service.
type Status string

const (
	// StatusOK indicates the query succeeded for the whole batch.
	StatusOK Status = "ok"

	// StatusWarning indicates the query succeeded with caveats, for
	// example some addresses were skipped.
	StatusWarning Status = "warning"

	// StatusDenied indicates the service refused the query, typically
	// because of an invalid or over-quota API key.
	StatusDenied Status = "denied"

	// StatusError indicates the service reported a failure.
	StatusError Status = "error"
)

// ParseStatus maps a wire status string to a Status. Unknown strings
// map to StatusError.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "ok":
		return StatusOK
	case "warning":
		return StatusWarning
	case "denied":
		return StatusDenied
	default:
		return StatusError
	}
}

// NodeCacheOnly is the sentinel node identifier reported when a query
// was answered entirely from cache and no remote node was involved.
const NodeCacheOnly = "cache"

// IPResult holds the detection data for a single address.
//
// A populated ErrorMessage signals a per-address failure (the service
// could not resolve this one address); it is data, not an error return,
// because a batch query can partially succeed.
type IPResult struct {
	ASN           string
	Provider      string
	Country       string
	ISOCode       string
	Latitude      float64
	Longitude     float64
	City          string
	IsProxy       bool
	ProxyType     string
	RiskScore     int
	Port          int
	LastSeenHuman string
	LastSeenUnix  int64
	LastSeen      time.Time
	ErrorMessage  string

	// IsCacheHit records whether this value was served from the local
	// cache rather than freshly fetched.
	IsCacheHit bool
}

// Result is the aggregate answer for one query. Results holds exactly
// one entry per distinct requested address.
type Result struct {
	Status  Status
	Message string

	// Node names the answering remote node when node reporting was
	// requested. NodeCacheOnly when the whole batch came from cache.
	Node string

	// QueryTime is the elapsed query duration when time reporting was
	// requested. For a pure cache hit it measures only the local cache
	// lookup, not a remote round trip.
	QueryTime time.Duration

	// FromCacheOnly is set when no remote call occurred, so callers can
	// tell synthetic cache-only timing apart from a real round trip.
	FromCacheOnly bool

	Results map[string]IPResult
}
