package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/proxyintel/client-go/pkg/query"
)

// Fetcher performs the remote lookup call. Implementations must accept
// an arbitrary non-empty batch of addresses and return one raw response
// covering all of them.
type Fetcher interface {
	Fetch(ctx context.Context, ips []string, opts query.Options, tag string) ([]byte, error)
}

// httpFetcher is the production Fetcher. It POSTs the comma-joined
// batch to the detection endpoint, with the query flags encoded as URL
// parameters and the scheme chosen by the TLS option.
type httpFetcher struct {
	httpClient *http.Client
	host       string
	apiKey     string
	logger     zerolog.Logger
}

func (f *httpFetcher) Fetch(ctx context.Context, ips []string, opts query.Options, tag string) ([]byte, error) {
	endpoint := f.buildURL(opts)

	form := url.Values{}
	form.Set("ips", strings.Join(ips, ","))
	if tag != "" {
		form.Set("tag", tag)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &LookupError{
			Class:   ErrorClassNetwork,
			Message: "http request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &LookupError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LookupError{
			Class:   ErrorClassNetwork,
			Message: "read response body",
			Err:     err,
		}
	}

	f.logger.Debug().
		Int("ips", len(ips)).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Remote lookup completed")

	return body, nil
}

// buildURL encodes the option flags as URL parameters. The transport
// security flag selects the scheme; everything else rides in the query
// string.
func (f *httpFetcher) buildURL(opts query.Options) string {
	scheme := "http"
	if opts.UseTLS {
		scheme = "https"
	}

	v := url.Values{}
	v.Set("vpn", wireFlag(opts.VPNDetection))
	v.Set("asn", wireFlag(opts.ASN))
	v.Set("inf", wireFlag(opts.Inference))
	v.Set("port", wireFlag(opts.Port))
	v.Set("seen", wireFlag(opts.LastSeen))
	if opts.RiskLevel != nil {
		v.Set("risk", strconv.Itoa(*opts.RiskLevel))
	}
	if opts.ReportNode {
		v.Set("node", "1")
	}
	if opts.ReportTime {
		v.Set("time", "1")
	}
	if f.apiKey != "" {
		v.Set("key", f.apiKey)
	}

	return scheme + "://" + f.host + "/v2/?" + v.Encode()
}

func wireFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
