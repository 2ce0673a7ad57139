// Package metrics provides Prometheus instrumentation for the ExitGuard core.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exitguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BatchesIngestedTotal counts behavior batches by result.
	BatchesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "batches_ingested_total",
			Help:      "Total tracker batches ingested by result.",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks sessions currently held by the store.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exitguard",
			Name:      "active_sessions",
			Help:      "Number of sessions currently in the store.",
		},
	)

	// RiskScore observes computed risk scores.
	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "exitguard",
		Name:      "risk_score",
		Help:      "Distribution of computed risk scores.",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// MoodsTotal counts classified moods.
	MoodsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "moods_total",
			Help:      "Total mood classifications by label.",
		},
		[]string{"mood"},
	)

	// InterventionsTotal counts fired interventions by type.
	InterventionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "interventions_total",
			Help:      "Total interventions fired by type.",
		},
		[]string{"type"},
	)

	// ConversionsTotal counts attributed conversions by status.
	ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "conversions_total",
			Help:      "Total attributed conversions by status (salvaged or organic).",
		},
		[]string{"status"},
	)

	// RevenueSavedTotal sums revenue attributed to salvaged conversions.
	RevenueSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "exitguard",
		Name:      "revenue_saved_total",
		Help:      "Total revenue attributed to salvaged conversions.",
	})

	// SessionsExpiredTotal counts sessions evicted by the janitor, by outcome.
	SessionsExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitguard",
			Name:      "sessions_expired_total",
			Help:      "Total sessions evicted after the inactivity timeout, by outcome.",
		},
		[]string{"outcome"},
	)

	// ActiveWebSocketClients tracks connected dashboard stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exitguard",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BatchesIngestedTotal,
		ActiveSessions,
		RiskScore,
		MoodsTotal,
		InterventionsTotal,
		ConversionsTotal,
		RevenueSavedTotal,
		SessionsExpiredTotal,
		ActiveWebSocketClients,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
