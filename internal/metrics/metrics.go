// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal          *prometheus.CounterVec
	pageBytesTotal             *prometheus.CounterVec
	headlessPromotionsTotal    prometheus.Counter
	linkProbesTotal            *prometheus.CounterVec
	oracleCallsTotal           *prometheus.CounterVec
	oracleCallDurationSeconds  *prometheus.HistogramVec
	oraclePacingDelaySeconds   prometheus.Histogram
	auditsTotal                *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_pages_fetched_total",
				Help: "Total number of pages fetched by the crawler, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		pageBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_page_bytes_total",
				Help: "Total number of HTML bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		headlessPromotionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "smartqa_headless_promotions_total",
				Help: "Pages re-fetched through the headless browser.",
			},
		)

		linkProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_link_probes_total",
				Help: "External link probes, labeled by outcome.",
			},
			[]string{"status"},
		)

		oracleCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_oracle_calls_total",
				Help: "Oracle completions, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		oracleCallDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartqa_oracle_call_duration_seconds",
				Help:    "Histogram of oracle call latencies, labeled by stage.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"stage"},
		)

		oraclePacingDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "smartqa_oracle_pacing_delay_seconds",
				Help:    "Histogram of time spent waiting on the oracle pacer.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
		)

		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_audits_total",
				Help: "Completed audits, labeled by status.",
			},
			[]string{"status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartqa_http_requests_total",
				Help: "API requests, labeled by method, route pattern and status code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartqa_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120, 600},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one crawler fetch.
func ObservePage(site string, status string, bytesFetched int) {
	if pagesFetchedTotal == nil {
		return
	}
	sanitizedSite := SanitizeSite(site)
	pagesFetchedTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		pageBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveHeadlessPromotion counts a page re-fetched through the browser.
func ObserveHeadlessPromotion() {
	if headlessPromotionsTotal == nil {
		return
	}
	headlessPromotionsTotal.Inc()
}

// ObserveLinkProbe counts one probe outcome (ok, broken, error).
func ObserveLinkProbe(status string) {
	if linkProbesTotal == nil {
		return
	}
	linkProbesTotal.WithLabelValues(status).Inc()
}

// ObserveOracleCall records one oracle completion.
func ObserveOracleCall(stage, outcome string, duration time.Duration) {
	if oracleCallsTotal == nil {
		return
	}
	oracleCallsTotal.WithLabelValues(stage, outcome).Inc()
	oracleCallDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObservePacingDelay records how long an oracle call waited on the pacer.
func ObservePacingDelay(duration time.Duration) {
	if oraclePacingDelaySeconds == nil {
		return
	}
	oraclePacingDelaySeconds.Observe(duration.Seconds())
}

// ObserveAudit counts a finished audit by status.
func ObserveAudit(status string) {
	if auditsTotal == nil {
		return
	}
	auditsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one API request under its chi route pattern.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
