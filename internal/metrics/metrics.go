// Package metrics exposes Prometheus collectors for the downloader.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cf1400_probes_total",
			Help: "Total number of candidate probes, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cf1400_runs_total",
			Help: "Total number of download runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	downloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cf1400_download_bytes_total",
			Help: "Total number of bytes written to the download directory.",
		},
	)

	recordErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cf1400_record_errors_total",
			Help: "Total number of downloads that could not be recorded in the database.",
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cf1400_rate_limit_delay_seconds",
			Help:    "Time spent waiting for the per-host limiter before a probe.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"host"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe counts one candidate probe.
func ObserveProbe(outcome string) {
	probesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun counts one completed download run.
func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDownloadBytes adds n written bytes.
func ObserveDownloadBytes(n int64) {
	if n > 0 {
		downloadBytesTotal.Add(float64(n))
	}
}

// ObserveRecordError counts a failed record insert.
func ObserveRecordError() {
	recordErrorsTotal.Inc()
}

// ObserveRateLimitDelay records how long a probe waited for its host's limiter.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
