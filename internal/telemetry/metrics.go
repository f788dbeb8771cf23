package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muninn_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muninn_api_active_connections",
		Help: "In-flight HTTP API requests.",
	})

	// ScheduleOperationsTotal counts schedule service operations by outcome.
	ScheduleOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_schedule_operations_total",
		Help: "Schedule service operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// ScheduleConflictsTotal counts rejected overlapping bookings per station.
	ScheduleConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muninn_schedule_conflicts_total",
		Help: "Schedule bookings rejected due to overlap.",
	}, []string{"station_id"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
