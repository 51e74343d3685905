// Package quota tracks usage of the detection service's daily query
// allowance and gates remote calls before the allowance is exhausted.
// Usage counters live in Redis so the allowance is shared across all
// client instances running against the same API key.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proxyintel_quota_used",
		Help: "Queries used against the daily allowance",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxyintel_quota_blocks_total",
		Help: "Total number of remote calls blocked by the daily allowance",
	})
)

// keyPrefix namespaces the per-day usage counters in Redis.
const keyPrefix = "proxyintel:quota:used:"

// counterTTL keeps spent-day counters around briefly for inspection
// before Redis drops them.
const counterTTL = 48 * time.Hour

// Tracker counts queries against a daily allowance. The allowance
// window follows the service's reset schedule: UTC midnight.
type Tracker struct {
	redis  *redis.Client
	limit  int
	logger zerolog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewTracker creates a quota tracker. limit is the daily query
// allowance; zero or negative means unlimited.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// key returns the usage counter key for the current UTC day.
func (t *Tracker) key() string {
	return keyPrefix + t.now().UTC().Format("2006-01-02")
}

// Used returns the number of queries recorded for the current day.
func (t *Tracker) Used(ctx context.Context) (int, error) {
	used, err := t.redis.Get(ctx, t.key()).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota counter: %w", err)
	}
	return used, nil
}

// Allow reports whether n more queries fit in today's allowance.
func (t *Tracker) Allow(ctx context.Context, n int) (bool, error) {
	if t.limit <= 0 {
		return true, nil
	}

	used, err := t.Used(ctx)
	if err != nil {
		return false, err
	}
	quotaUsed.Set(float64(used))

	if used+n > t.limit {
		quotaBlocksTotal.Inc()
		t.logger.Warn().
			Int("used", used).
			Int("requested", n).
			Int("limit", t.limit).
			Msg("Remote call blocked by daily allowance")
		return false, nil
	}
	return true, nil
}

// Record adds n queries to today's usage counter.
func (t *Tracker) Record(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	key := t.key()
	used, err := t.redis.IncrBy(ctx, key, int64(n)).Result()
	if err != nil {
		return fmt.Errorf("increment quota counter: %w", err)
	}
	// Counter TTL only needs setting once, but an extra EXPIRE is
	// harmless and avoids a round trip to check.
	if err := t.redis.Expire(ctx, key, counterTTL).Err(); err != nil {
		return fmt.Errorf("expire quota counter: %w", err)
	}

	quotaUsed.Set(float64(used))
	return nil
}
