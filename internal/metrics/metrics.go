// Package metrics provides Prometheus collectors for the PCF service
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Recompute metrics
	RecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_recompute_total",
			Help: "Total number of footprint recomputations",
		},
		[]string{"status"},
	)

	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcf_recompute_duration_seconds",
			Help:    "Time taken to recompute a product footprint",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"boundary"},
	)

	MissingFactors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pcf_missing_emission_factors",
			Help: "Components without an emission factor at the last recompute",
		},
		[]string{"product_id"},
	)

	TreeAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_tree_anomalies_total",
			Help: "Malformed BOM references detected while building trees",
		},
		[]string{"kind"},
	)

	// Batch write-back metrics
	BatchRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_batch_records_total",
			Help: "Records processed by batch writes",
		},
		[]string{"operation", "result"},
	)

	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_cache_lookups_total",
			Help: "Footprint cache lookups",
		},
		[]string{"result"},
	)

	SSEClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pcf_sse_clients",
			Help: "Connected SSE clients",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcf_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcf_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordRecompute records one recomputation
func RecordRecompute(boundary string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecomputeTotal.WithLabelValues(status).Inc()
	RecomputeDuration.WithLabelValues(boundary).Observe(duration.Seconds())
}

// RecordBatch records the outcome of a batch write
func RecordBatch(operation string, succeeded, failed int) {
	BatchRecords.WithLabelValues(operation, "succeeded").Add(float64(succeeded))
	BatchRecords.WithLabelValues(operation, "failed").Add(float64(failed))
}

// ForgetProduct drops the per-product series of a deleted product
func ForgetProduct(productID string) {
	MissingFactors.DeleteLabelValues(productID)
}

// Middleware HTTP请求指标中间件
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
