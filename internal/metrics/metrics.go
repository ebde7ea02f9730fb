package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_http_requests_total",
			Help: "Total number of HTTP requests served by the UI process",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmconnect_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	backendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_backend_calls_total",
			Help: "Backend client calls by operation, table and outcome",
		},
		[]string{"op", "table", "outcome"},
	)

	backendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farmconnect_backend_call_duration_seconds",
			Help:    "Backend client call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "table"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_auth_events_total",
			Help: "Auth state events published and dropped",
		},
		[]string{"event", "delivery"},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveBackend records one backend client call started at start.
func ObserveBackend(op, table string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendCallsTotal.WithLabelValues(op, table, outcome).Inc()
	backendCallDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
}

// AuthEvent counts an auth event delivery ("delivered" or "dropped").
func AuthEvent(event, delivery string) {
	authEventsTotal.WithLabelValues(event, delivery).Inc()
}
