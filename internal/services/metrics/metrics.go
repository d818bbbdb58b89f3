package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const divisor = 100

// Metrics holds Prometheus metric vectors for the weather widget.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Domain metrics
	WeatherRequestsTotal     *prometheus.CounterVec
	WeatherErrorsTotal       *prometheus.CounterVec
	GeolocationFailuresTotal prometheus.Counter
	StaleResponsesTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all widget metrics on a private registry.
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests received",
			},
			[]string{"method", "endpoint", "status_class"},
		),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: serviceName,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		WeatherRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "weather_requests_total",
				Help:      "Total number of weather fetches issued by widgets",
			},
			[]string{"kind"},
		),

		WeatherErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "weather_errors_total",
				Help:      "Total number of weather fetches that ended with no results",
			},
			[]string{"kind", "error_type"},
		),

		GeolocationFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "geolocation_failures_total",
				Help:      "Initial loads skipped because no position was available",
			},
		),

		StaleResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: serviceName,
				Name:      "stale_responses_total",
				Help:      "Responses discarded because a newer fetch had been issued",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WeatherRequestsTotal,
		m.WeatherErrorsTotal,
		m.GeolocationFailuresTotal,
		m.StaleResponsesTotal,
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(
				collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/sched/latencies:seconds")},
			),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPMiddleware returns a Gin middleware to instrument HTTP endpoints.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.HTTPRequestsTotal.With(prometheus.Labels{
			"method":       c.Request.Method,
			"endpoint":     endpoint,
			"status_class": getStatusClass(c.Writer.Status()),
		}).Inc()
		m.HTTPRequestDuration.With(prometheus.Labels{
			"method":   c.Request.Method,
			"endpoint": endpoint,
		}).Observe(d.Seconds())
	}
}

func (m *Metrics) FetchCompleted(kind string, err error) {
	m.WeatherRequestsTotal.WithLabelValues(kind).Inc()
	if err != nil {
		m.WeatherErrorsTotal.WithLabelValues(kind, errorType(err)).Inc()
	}
}

func (m *Metrics) GeolocationFailed(error) {
	m.GeolocationFailuresTotal.Inc()
}

func (m *Metrics) StaleDiscarded(kind string) {
	m.StaleResponsesTotal.WithLabelValues(kind).Inc()
}

// errorType buckets a failure for the error counter only; the widget itself
// treats every failure as "no results".
func errorType(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "breaker_open"
	}
	var coded interface{ ClientFault() bool }
	if errors.As(err, &coded) {
		if coded.ClientFault() {
			return "client_error"
		}
		return "server_error"
	}
	return "transport"
}

func getStatusClass(code int) string {
	return fmt.Sprintf("%dxx", code/divisor)
}
