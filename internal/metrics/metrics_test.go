package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitAndObserve(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if pagesFetchedTotal == nil || linkProbesTotal == nil ||
		oracleCallsTotal == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObservePage("https://metrics-test.example/a", "success", 10)
	if val := testutil.ToFloat64(pagesFetchedTotal.WithLabelValues("metrics-test.example", "success")); val != 1 {
		t.Errorf("expected one fetched page, got %f", val)
	}
	if val := testutil.ToFloat64(pageBytesTotal.WithLabelValues("metrics-test.example")); val != 10 {
		t.Errorf("expected 10 bytes, got %f", val)
	}

	ObserveOracleCall("metrics-test-stage", "ok", 2*time.Second)
	if val := testutil.ToFloat64(oracleCallsTotal.WithLabelValues("metrics-test-stage", "ok")); val != 1 {
		t.Errorf("expected one oracle call, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
