// Package monitoring exposes the Prometheus metrics for division generation
// and the external OSM services.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sar_generation_runs_total",
			Help: "Total number of division generation runs",
		},
		[]string{"mode"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sar_generation_duration_seconds",
			Help:    "Division generation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"mode"},
	)

	GenerationDivisions = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sar_generation_divisions",
			Help:    "Number of divisions produced per generation run",
			Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 20},
		},
		[]string{"mode"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sar_provider_requests_total",
			Help: "Total number of external geo-data provider requests",
		},
		[]string{"service", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sar_provider_request_duration_seconds",
			Help:    "External provider request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"service"},
	)

	CacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sar_cache_events_total",
			Help: "Bounding-box cache hits and misses",
		},
		[]string{"cache", "result"},
	)
)

// RecordGeneration records one generation run.
func RecordGeneration(mode string, divisionCount int, duration time.Duration) {
	GenerationRunsTotal.WithLabelValues(mode).Inc()
	GenerationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if divisionCount > 0 {
		GenerationDivisions.WithLabelValues(mode).Observe(float64(divisionCount))
	}
}

// RecordProviderRequest records one external service round trip.
func RecordProviderRequest(service, status string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(service, status).Inc()
	ProviderRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordCacheHit and RecordCacheMiss count bounded-cache lookups.
func RecordCacheHit(cache string) {
	CacheEventsTotal.WithLabelValues(cache, "hit").Inc()
}

func RecordCacheMiss(cache string) {
	CacheEventsTotal.WithLabelValues(cache, "miss").Inc()
}
