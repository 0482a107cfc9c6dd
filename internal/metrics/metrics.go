package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cortexfolio"

// Collector exposes Prometheus metrics for the HTTP surface, workflow runs
// and upstream provider failures.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	workflowRuns    *prometheus.CounterVec
	workflowLatency *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
}

func New() (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		workflowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow executions by outcome.",
		}, []string{"workflow", "outcome"}),
		workflowLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "Workflow execution time.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"workflow"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed calls to external data providers.",
		}, []string{"provider"}),
	}

	for _, col := range []prometheus.Collector{
		c.requestDuration, c.requestTotal, c.workflowRuns, c.workflowLatency, c.upstreamErrors,
	} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics labelled by route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(ctx.Writer.Status())
		method := ctx.Request.Method

		c.requestTotal.WithLabelValues(method, path, status).Inc()
		c.requestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveWorkflow records one workflow run. A nil collector is a no-op.
func (c *Collector) ObserveWorkflow(name string, started time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.workflowRuns.WithLabelValues(name, outcome).Inc()
	c.workflowLatency.WithLabelValues(name).Observe(time.Since(started).Seconds())
}

// UpstreamError counts a failed provider call. A nil collector is a no-op.
func (c *Collector) UpstreamError(provider string) {
	if c == nil {
		return
	}
	c.upstreamErrors.WithLabelValues(provider).Inc()
}
