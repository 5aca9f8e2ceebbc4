// Package metrics exposes Prometheus metrics for the HTTP layer and the
// listing domain. Each Metrics value owns its registry so several servers
// can live in one process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "rental"

type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SignupsTotal           prometheus.Counter
	PropertiesCreatedTotal prometheus.Counter
	UploadsTotal           *prometheus.CounterVec
}

// New registers every metric on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SignupsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_signups_total",
			Help: "Total number of completed signups",
		}),
		PropertiesCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_properties_created_total",
			Help: "Total number of stored property listings",
		}),
		UploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_uploads_total",
				Help: "Total number of image uploads by result",
			},
			[]string{"result"},
		),
	}
}

// Middleware records request count and duration per route.
func (m *Metrics) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// let echo render the error so the recorded status is the final one
			c.Error(err)
		}

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Response().Status)
		m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
		return nil
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordUpload counts an upload attempt by outcome.
func (m *Metrics) RecordUpload(ok bool) {
	result := "error"
	if ok {
		result = "success"
	}
	m.UploadsTotal.WithLabelValues(result).Inc()
}
