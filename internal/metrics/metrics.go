// Package metrics exposes Prometheus collectors for the festivals service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	scrapesTotal               *prometheus.CounterVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	cacheLookupsTotal          *prometheus.CounterVec
	cacheEvictionsTotal        prometheus.Counter
	cacheEntries               prometheus.Gauge
	rateLimitedTotal           prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festivals_scrapes_total",
				Help: "Total number of upstream calendar scrapes, labeled by view and outcome.",
			},
			[]string{"view", "outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "festivals_scrape_duration_seconds",
				Help:    "Histogram of upstream scrape latencies, labeled by view.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"view"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "festivals_cache_lookups_total",
				Help: "Total number of cache lookups, labeled by view and result.",
			},
			[]string{"view", "result"},
		)

		cacheEvictionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "festivals_cache_evictions_total",
				Help: "Total number of cache entries removed by the expiry sweeper.",
			},
		)

		cacheEntries = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "festivals_cache_entries",
				Help: "Number of entries currently held in the response cache.",
			},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "festivals_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveScrape records one upstream scrape attempt for a view.
func ObserveScrape(view string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	scrapesTotal.WithLabelValues(view, outcome).Inc()
	scrapeDurationSeconds.WithLabelValues(view).Observe(duration.Seconds())
}

// ObserveCacheLookup records a cache hit or miss for a view.
func ObserveCacheLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(view, result).Inc()
}

// AddCacheEvictions adds swept entries to the eviction counter.
func AddCacheEvictions(n int) {
	if n > 0 {
		cacheEvictionsTotal.Add(float64(n))
	}
}

// SetCacheEntries updates the cache size gauge.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// IncRateLimited increments the rejected request counter.
func IncRateLimited() {
	rateLimitedTotal.Inc()
}
