// Package query defines the value types shared by the proxy detection
// client and its cache providers: request options, per-address results
// and the aggregate query result.
package query

// Options describes how a detection query should be performed. A value
// is immutable for the lifetime of a query; copy and modify to derive a
// new shape.
type Options struct {
	// Cache-relevant flags. Two queries share cache entries only when
	// every one of these matches, see Equivalent.

	// VPNDetection asks the service to flag VPN exit addresses.
	VPNDetection bool

	// ASN includes AS number, provider and geo data in each result.
	ASN bool

	// Inference enables the service's real-time inference engine in
	// addition to its block lists.
	Inference bool

	// Port includes the port the proxy was last seen operating on.
	Port bool

	// LastSeen includes when the address was last seen acting as a proxy.
	LastSeen bool

	// RiskLevel selects the depth of risk scoring. nil means risk
	// scoring was not requested, which is distinct from level 0.
	RiskLevel *int

	// UseTLS selects HTTPS transport for the remote call.
	UseTLS bool

	// Query metadata. These do not partition the cache key space: the
	// cached per-address record is identical either way.

	// ReportNode asks the service to name the answering node.
	ReportNode bool

	// ReportTime asks the service to report the query processing time.
	ReportTime bool
}

// RiskLevelOf is a convenience for building an Options literal with a
// set risk level.
func RiskLevelOf(level int) *int {
	return &level
}

// Equivalent reports whether a and b describe the same query shape for
// caching purposes. A cached record produced under one flag set lacks
// the fields another flag set would have requested, so every
// cache-relevant flag must match field by field. An unset risk level
// matches only another unset risk level, never numeric zero.
func Equivalent(a, b Options) bool {
	if a.VPNDetection != b.VPNDetection ||
		a.ASN != b.ASN ||
		a.Inference != b.Inference ||
		a.Port != b.Port ||
		a.LastSeen != b.LastSeen ||
		a.UseTLS != b.UseTLS {
		return false
	}
	if (a.RiskLevel == nil) != (b.RiskLevel == nil) {
		return false
	}
	if a.RiskLevel != nil && *a.RiskLevel != *b.RiskLevel {
		return false
	}
	return true
}
