// proxyintel-proxy exposes the detection client as a small HTTP
// service so non-Go consumers can share its cache. One instance in
// front of a Redis cache deduplicates lookups for a whole fleet.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/proxyintel/client-go/pkg/cache"
	"github.com/proxyintel/client-go/pkg/client"
	"github.com/proxyintel/client-go/pkg/logging"
	"github.com/proxyintel/client-go/pkg/query"
	"github.com/proxyintel/client-go/pkg/quota"
)

func main() {
	_ = godotenv.Load(".env")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	port := getEnv("PORT", "8080")
	apiKey := getEnv("PROXYINTEL_API_KEY", "")
	redisURL := getEnv("REDIS_URL", "")
	dailyLimit, _ := strconv.Atoi(getEnv("DAILY_QUERY_LIMIT", "0"))

	maxAge := cache.DefaultMaxAge
	if v := getEnv("CACHE_MAX_AGE", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Fatal().Err(err).Str("value", v).Msg("Invalid CACHE_MAX_AGE")
		}
		maxAge = d
	}

	cfg := client.DefaultConfig(apiKey)

	// With Redis configured the cache and the quota counters are shared
	// across instances; without it each process keeps its own.
	var redisClient *redis.Client
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Cache = cache.NewRedis(redisClient, maxAge)
		cfg.Quota = quota.NewTracker(redisClient, dailyLimit, logging.NewLogger("quota"))
		logger.Info().Str("addr", redisURL).Msg("Using Redis cache")
	} else {
		cfg.Cache = cache.NewMemory(maxAge)
		logger.Info().Msg("Using in-memory cache")
	}

	detector, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create detection client")
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.HandleFunc("/check", checkHandler(detector))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().Str("addr", addr).Msg("Starting detection proxy")
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports readiness; with Redis configured it requires a
// reachable backend.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// checkHandler answers GET /check?ips=1.2.3.4,5.6.7.8&vpn=1&asn=1 with
// the merged query result as JSON.
func checkHandler(detector *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ips := splitIPs(r.URL.Query().Get("ips"))
		opts := parseOptions(r.URL.Query())
		tag := r.URL.Query().Get("tag")

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		res, err := detector.Check(ctx, ips, opts, tag)
		if err != nil {
			status := http.StatusBadGateway
			if errorsIsInput(err) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func errorsIsInput(err error) bool {
	return errors.Is(err, client.ErrEmptyQuery) || errors.Is(err, client.ErrInvalidAddress)
}

func splitIPs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOptions maps URL query flags onto detection options.
func parseOptions(values map[string][]string) query.Options {
	get := func(key string) string {
		if v, ok := values[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	opts := query.Options{
		VPNDetection: get("vpn") == "1",
		ASN:          get("asn") == "1",
		Inference:    get("inf") == "1",
		Port:         get("port") == "1",
		LastSeen:     get("seen") == "1",
		UseTLS:       get("tls") != "0", // default to TLS toward the service
		ReportNode:   get("node") == "1",
		ReportTime:   get("time") == "1",
	}
	if v := get("risk"); v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			opts.RiskLevel = query.RiskLevelOf(level)
		}
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
