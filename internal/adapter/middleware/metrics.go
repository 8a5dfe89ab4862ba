package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status_code"})
)

// Metrics records request counts and latency labelled by route pattern.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error so the status below is final
				c.Error(err)
			}
			status := strconv.Itoa(c.Response().Status)
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
