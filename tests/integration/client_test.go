package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/proxyintel/client-go/internal/testutil"
	"github.com/proxyintel/client-go/pkg/cache"
	"github.com/proxyintel/client-go/pkg/client"
	"github.com/proxyintel/client-go/pkg/query"
	"github.com/proxyintel/client-go/pkg/quota"
	"github.com/rs/zerolog"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newDetectorClient(t *testing.T, mock *testutil.MockDetector, provider cache.Provider) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("")
	cfg.Host = mock.Host()
	cfg.Cache = provider
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullQueryFlow exercises the complete flow against a real Redis:
// miss -> remote fetch -> cache write -> hit without a remote call.
func TestFullQueryFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockDetector()
	defer mock.Close()
	mock.SetProxyResult("37.60.48.2", "VPN")
	mock.SetResult("8.8.8.8", `{"proxy": "no", "country": "United States"}`)

	c := newDetectorClient(t, mock, cache.NewRedis(redisClient, time.Hour))

	ctx := context.Background()
	ips := []string{"37.60.48.2", "8.8.8.8"}
	opts := query.Options{VPNDetection: true, ReportNode: true}

	// Request 1: everything misses, one remote call.
	t.Log("Request 1: cache miss, remote fetch")
	res1, err := c.Check(ctx, ips, opts, "integration")
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("remote calls = %d, want 1", mock.GetRequestCount())
	}
	if res1.FromCacheOnly {
		t.Error("first request must not be cache-only")
	}
	if !res1.Results["37.60.48.2"].IsProxy {
		t.Errorf("unexpected result: %+v", res1.Results["37.60.48.2"])
	}

	// Request 2: fully cached, no remote call.
	t.Log("Request 2: served from Redis cache")
	res2, err := c.Check(ctx, ips, opts, "integration")
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("remote calls = %d, want still 1", mock.GetRequestCount())
	}
	if !res2.FromCacheOnly {
		t.Error("second request should be cache-only")
	}
	if res2.Node != query.NodeCacheOnly {
		t.Errorf("node = %q, want %q", res2.Node, query.NodeCacheOnly)
	}
	for ip, r := range res2.Results {
		if !r.IsCacheHit {
			t.Errorf("%s not marked as cache hit", ip)
		}
	}

	// Request 3: different options, the cache must not answer.
	t.Log("Request 3: options mismatch forces a refetch")
	if _, err := c.Check(ctx, ips, query.Options{VPNDetection: false}, "integration"); err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("remote calls = %d, want 2", mock.GetRequestCount())
	}
}

// TestPartialCacheAcrossClients verifies two clients share a Redis
// cache: one client's fetch becomes the other's hit.
func TestPartialCacheAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockDetector()
	defer mock.Close()
	mock.SetResult("1.1.1.1", `{"proxy": "no"}`)
	mock.SetResult("2.2.2.2", `{"proxy": "yes", "type": "SOCKS5"}`)

	opts := query.Options{ASN: true}
	ctx := context.Background()

	first := newDetectorClient(t, mock, cache.NewRedis(redisClient, time.Hour))
	if _, err := first.Check(ctx, []string{"1.1.1.1"}, opts, ""); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}

	second := newDetectorClient(t, mock, cache.NewRedis(redisClient, time.Hour))
	res, err := second.Check(ctx, []string{"1.1.1.1", "2.2.2.2"}, opts, "")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	// Only the uncached address goes over the wire.
	if got := mock.LastRequestedIPs(); len(got) != 1 || got[0] != "2.2.2.2" {
		t.Errorf("second fetch = %v, want [2.2.2.2]", got)
	}
	if !res.Results["1.1.1.1"].IsCacheHit {
		t.Error("1.1.1.1 should be served from the shared cache")
	}
	if res.Results["2.2.2.2"].IsCacheHit {
		t.Error("2.2.2.2 was fetched and must not be marked as a hit")
	}
}

// TestQuotaGatesRemoteCalls verifies the daily allowance blocks the
// remote call once exhausted while cached answers keep working.
func TestQuotaGatesRemoteCalls(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockDetector()
	defer mock.Close()
	mock.SetResult("1.1.1.1", `{"proxy": "no"}`)
	mock.SetResult("2.2.2.2", `{"proxy": "no"}`)

	cfg := client.DefaultConfig("")
	cfg.Host = mock.Host()
	cfg.Cache = cache.NewRedis(redisClient, time.Hour)
	cfg.Quota = quota.NewTracker(redisClient, 1, zerolog.Nop())
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	// Uses up the allowance of one query.
	if _, err := c.Check(ctx, []string{"1.1.1.1"}, query.Options{}, ""); err != nil {
		t.Fatalf("first Check failed: %v", err)
	}

	// A new address needs a remote call: blocked.
	if _, err := c.Check(ctx, []string{"2.2.2.2"}, query.Options{}, ""); err == nil {
		t.Error("expected quota block for a fresh remote call")
	}

	// The cached address still answers without touching the allowance.
	res, err := c.Check(ctx, []string{"1.1.1.1"}, query.Options{}, "")
	if err != nil {
		t.Fatalf("cached Check failed: %v", err)
	}
	if !res.FromCacheOnly {
		t.Error("expected cache-only result despite exhausted quota")
	}
}
