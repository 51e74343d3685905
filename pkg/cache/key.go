package cache

import (
	"strconv"
	"strings"

	"github.com/proxyintel/client-go/pkg/query"
)

// Key identifies a cached per-address record under an options
// equivalence class. Only the cache-relevant option flags contribute to
// the key, so it partitions the key space exactly like
// query.Equivalent partitions option values.
type Key struct {
	IP      string
	Options query.Options
}

// String generates a deterministic key string.
// Format: pd:<ip>:vpn=0:asn=1:inf=0:port=0:seen=0:risk=-:tls=1
//
// The flag set is small and enumerable, so a direct field-by-field
// encoding is collision-free; no hashing needed.
func (k Key) String() string {
	risk := "-"
	if k.Options.RiskLevel != nil {
		risk = strconv.Itoa(*k.Options.RiskLevel)
	}

	parts := []string{
		"pd",
		k.IP,
		"vpn=" + flag(k.Options.VPNDetection),
		"asn=" + flag(k.Options.ASN),
		"inf=" + flag(k.Options.Inference),
		"port=" + flag(k.Options.Port),
		"seen=" + flag(k.Options.LastSeen),
		"risk=" + risk,
		"tls=" + flag(k.Options.UseTLS),
	}
	return strings.Join(parts, ":")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
