package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	listPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "list_pages_served_total",
			Help: "List pages served by kind and status",
		},
		[]string{"kind", "status"},
	)

	listPageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "list_page_duration_seconds",
			Help:    "Duration of list page queries in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
			serviceName,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			serviceName,
		).Observe(duration)
	}
}

// RecordListPage tracks one served list page.
func RecordListPage(kind string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	listPagesTotal.WithLabelValues(kind, status).Inc()
	listPageDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
