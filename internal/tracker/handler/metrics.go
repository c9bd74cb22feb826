package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lexRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	lexRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lexledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	lexAmendmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexledger_amendments_appended_total",
		Help: "Total amendment records appended, by change type.",
	}, []string{"change_type"})

	lexVerifyRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexledger_verify_runs_total",
		Help: "Total chain verification runs by outcome.",
	}, []string{"result"})

	lexChainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexledger_chain_length",
		Help: "Current number of records in the amendment chain.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		lexRequestsTotal.WithLabelValues(method, path, status).Inc()
		lexRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAmendmentAppend records a successful ledger append.
func RecordAmendmentAppend(changeType string) {
	lexAmendmentsTotal.WithLabelValues(changeType).Inc()
}

// RecordVerifyRun records a verification run outcome.
func RecordVerifyRun(valid bool) {
	if valid {
		lexVerifyRunsTotal.WithLabelValues("valid").Inc()
	} else {
		lexVerifyRunsTotal.WithLabelValues("invalid").Inc()
	}
}

// SetChainLength updates the chain length gauge.
func SetChainLength(n int) {
	lexChainLength.Set(float64(n))
}
