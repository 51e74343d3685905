// Package testutil provides testing utilities for the proxy detection client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// MockDetector is a configurable mock of the detection service for
// testing. It records every request's query parameters and POST form so
// tests can assert exactly which addresses were fetched remotely.
type MockDetector struct {
	server *httptest.Server

	mu         sync.RWMutex
	statusCode int
	body       string
	perIP      map[string]string // IP -> per-address JSON object

	// Tracking
	RequestCount int
	LastQuery    url.Values
	LastForm     url.Values
}

// NewMockDetector creates a mock detection server answering with an
// "ok" status and an empty body until configured otherwise.
func NewMockDetector() *MockDetector {
	mock := &MockDetector{
		statusCode: http.StatusOK,
		perIP:      make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.LastForm = r.PostForm
		status := mock.statusCode
		body := mock.body
		if body == "" {
			body = mock.renderResponse(r.PostForm.Get("ips"))
		}
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))

	return mock
}

// renderResponse builds an "ok" response covering the requested
// addresses from the configured per-IP objects. Callers must hold mu.
func (m *MockDetector) renderResponse(ips string) string {
	parts := []string{`"status": "ok"`, `"node": "testnode"`, `"query time": "0.001s"`}
	for _, ip := range strings.Split(ips, ",") {
		if obj, ok := m.perIP[ip]; ok {
			parts = append(parts, fmt.Sprintf("%q: %s", ip, obj))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// URL returns the mock server URL.
func (m *MockDetector) URL() string {
	return m.server.URL
}

// Host returns the mock server's host:port, suitable for client.Config.Host.
func (m *MockDetector) Host() string {
	return strings.TrimPrefix(m.server.URL, "http://")
}

// Close shuts down the mock server.
func (m *MockDetector) Close() {
	m.server.Close()
}

// SetResult configures the per-address JSON object returned for ip.
func (m *MockDetector) SetResult(ip, obj string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perIP[ip] = obj
}

// SetProxyResult is a shorthand for a proxy detection hit.
func (m *MockDetector) SetProxyResult(ip, proxyType string) {
	m.SetResult(ip, fmt.Sprintf(`{"proxy": "yes", "type": %q}`, proxyType))
}

// SetResponse overrides the whole response body and status code.
func (m *MockDetector) SetResponse(statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCode = statusCode
	m.body = body
}

// GetRequestCount returns how many lookups the mock has served.
func (m *MockDetector) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// LastRequestedIPs returns the addresses of the most recent lookup.
func (m *MockDetector) LastRequestedIPs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ips := m.LastForm.Get("ips")
	if ips == "" {
		return nil
	}
	return strings.Split(ips, ",")
}

// Reset clears all tracking counters.
func (m *MockDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
	m.LastForm = nil
}

// MarshalResult is a helper for building per-address objects from a map.
func MarshalResult(fields map[string]any) string {
	data, _ := json.Marshal(fields)
	return string(data)
}
