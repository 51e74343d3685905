package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxyintel/client-go/internal/testutil"
	"github.com/proxyintel/client-go/pkg/query"
)

func newHTTPFetcher(host, apiKey string) *httpFetcher {
	return &httpFetcher{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		host:       host,
		apiKey:     apiKey,
		logger:     zerolog.Nop(),
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		opts   query.Options
		want   []string
		scheme string
	}{
		{
			name:   "zero options plain http",
			opts:   query.Options{},
			want:   []string{"vpn=0", "asn=0", "inf=0", "port=0", "seen=0"},
			scheme: "http://",
		},
		{
			name:   "tls selects https",
			opts:   query.Options{UseTLS: true},
			want:   []string{"vpn=0"},
			scheme: "https://",
		},
		{
			name:   "all flags",
			opts:   query.Options{VPNDetection: true, ASN: true, Inference: true, Port: true, LastSeen: true},
			want:   []string{"vpn=1", "asn=1", "inf=1", "port=1", "seen=1"},
			scheme: "http://",
		},
		{
			name:   "risk level zero is sent",
			opts:   query.Options{RiskLevel: query.RiskLevelOf(0)},
			want:   []string{"risk=0"},
			scheme: "http://",
		},
		{
			name:   "report flags",
			opts:   query.Options{ReportNode: true, ReportTime: true},
			want:   []string{"node=1", "time=1"},
			scheme: "http://",
		},
		{
			name:   "api key",
			apiKey: "secret123",
			opts:   query.Options{},
			want:   []string{"key=secret123"},
			scheme: "http://",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHTTPFetcher("example.test", tt.apiKey)
			got := f.buildURL(tt.opts)

			if !strings.HasPrefix(got, tt.scheme+"example.test/v2/?") {
				t.Errorf("url = %q, want prefix %q", got, tt.scheme+"example.test/v2/?")
			}
			for _, param := range tt.want {
				if !strings.Contains(got, param) {
					t.Errorf("url %q missing parameter %q", got, param)
				}
			}
		})
	}
}

func TestBuildURL_UnsetRiskOmitted(t *testing.T) {
	f := newHTTPFetcher("example.test", "")
	if got := f.buildURL(query.Options{}); strings.Contains(got, "risk=") {
		t.Errorf("unset risk level must not be encoded, got %q", got)
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	mock := testutil.NewMockDetector()
	defer mock.Close()
	mock.SetProxyResult("1.2.3.4", "VPN")

	f := newHTTPFetcher(mock.Host(), "k")
	raw, err := f.Fetch(context.Background(), []string{"1.2.3.4", "5.6.7.8"}, query.Options{ASN: true}, "unit-test")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
	if got := mock.LastForm.Get("ips"); got != "1.2.3.4,5.6.7.8" {
		t.Errorf("posted ips = %q", got)
	}
	if got := mock.LastForm.Get("tag"); got != "unit-test" {
		t.Errorf("posted tag = %q", got)
	}
	if got := mock.LastQuery.Get("asn"); got != "1" {
		t.Errorf("asn query param = %q, want 1", got)
	}
	if got := mock.LastQuery.Get("key"); got != "k" {
		t.Errorf("key query param = %q, want k", got)
	}
	if !strings.Contains(string(raw), "1.2.3.4") {
		t.Errorf("response body missing result: %s", raw)
	}
}

func TestHTTPFetcher_EmptyTagOmitted(t *testing.T) {
	mock := testutil.NewMockDetector()
	defer mock.Close()

	f := newHTTPFetcher(mock.Host(), "")
	if _, err := f.Fetch(context.Background(), []string{"1.2.3.4"}, query.Options{}, ""); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, ok := mock.LastForm["tag"]; ok {
		t.Error("empty tag must not be posted")
	}
}

func TestHTTPFetcher_ErrorStatus(t *testing.T) {
	mock := testutil.NewMockDetector()
	defer mock.Close()
	mock.SetResponse(http.StatusForbidden, `{"status": "denied"}`)

	f := newHTTPFetcher(mock.Host(), "")
	_, err := f.Fetch(context.Background(), []string{"1.2.3.4"}, query.Options{}, "")

	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want LookupError", err)
	}
	if le.StatusCode != http.StatusForbidden || le.Class != ErrorClassClient {
		t.Errorf("LookupError = %+v", le)
	}
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	f := newHTTPFetcher("localhost:1", "") // nothing listens here
	_, err := f.Fetch(context.Background(), []string{"1.2.3.4"}, query.Options{}, "")

	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want LookupError", err)
	}
	if le.Class != ErrorClassNetwork {
		t.Errorf("class = %q, want network", le.Class)
	}
}
