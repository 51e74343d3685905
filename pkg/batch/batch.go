// Package batch checks oversized address lists through a bounded
// worker pool. The detection service caps how many addresses fit in
// one call, so a large list is split into service-sized chunks, each
// chunk checked as its own query, and the partial results merged back
// into one.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/proxyintel/client-go/pkg/query"
)

// Checker is the single-query interface the pool drives. Satisfied by
// *client.Client.
type Checker interface {
	Check(ctx context.Context, ips []string, opts query.Options, tag string) (*query.Result, error)
}

// Config holds batch runner configuration.
type Config struct {
	// ChunkSize is the maximum addresses per query.
	ChunkSize int

	// MaxConcurrency is the maximum number of in-flight queries.
	MaxConcurrency int
}

// DefaultConfig returns a configuration matching the service's batch
// limit of 100 addresses per call.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      100,
		MaxConcurrency: 4,
	}
}

// Runner fans an address list out over multiple queries.
type Runner struct {
	checker Checker
	config  Config
}

// NewRunner creates a batch runner.
func NewRunner(checker Checker, cfg Config) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Runner{
		checker: checker,
		config:  cfg,
	}
}

// CheckAll checks every address, splitting the list into chunks and
// running them through the worker pool. The merged result keeps one
// entry per address; its status is the worst status any chunk reported
// and its query time is the wall-clock duration of the whole fan-out.
// The first chunk error cancels the remaining work and fails the call.
func (r *Runner) CheckAll(ctx context.Context, ips []string, opts query.Options, tag string) (*query.Result, error) {
	start := time.Now()

	chunks := chunk(ips, r.config.ChunkSize)
	if len(chunks) == 1 {
		return r.checker.Check(ctx, ips, opts, tag)
	}

	log.Debug().
		Int("ips", len(ips)).
		Int("chunks", len(chunks)).
		Int("workers", r.config.MaxConcurrency).
		Msg("Starting batched check")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan []string, len(chunks))
	for _, c := range chunks {
		work <- c
	}
	close(work)

	merged := &query.Result{
		Status:  query.StatusOK,
		Results: make(map[string]query.IPResult, len(ips)),
	}
	var mu sync.Mutex
	var firstErr error

	var wg sync.WaitGroup
	for i := 0; i < r.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				res, err := r.checker.Check(ctx, c, opts, tag)

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("batch chunk of %d addresses: %w", len(c), err)
						cancel()
					}
					mu.Unlock()
					return
				}
				for ip, pr := range res.Results {
					merged.Results[ip] = pr
				}
				merged.Status = worseStatus(merged.Status, res.Status)
				if res.Node != "" {
					merged.Node = res.Node
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	if opts.ReportTime {
		merged.QueryTime = time.Since(start)
	}

	log.Debug().
		Int("ips", len(merged.Results)).
		Dur("duration", time.Since(start)).
		Msg("Batched check complete")

	return merged, nil
}

// chunk splits ips into slices of at most size addresses.
func chunk(ips []string, size int) [][]string {
	var out [][]string
	for len(ips) > size {
		out = append(out, ips[:size])
		ips = ips[size:]
	}
	return append(out, ips)
}

// worseStatus orders statuses by severity and returns the worse one.
func worseStatus(a, b query.Status) query.Status {
	rank := func(s query.Status) int {
		switch s {
		case query.StatusOK:
			return 0
		case query.StatusWarning:
			return 1
		case query.StatusDenied:
			return 2
		default:
			return 3
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
