package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the workflow API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	projectTotal      *prometheus.CounterVec
	applicationTotal  *prometheus.CounterVec
	notificationTotal *prometheus.CounterVec
	rankingLatency    prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	projectTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "project_transitions_total",
		Help: "Total number of project lifecycle transitions",
	}, []string{"action"})

	applicationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_transitions_total",
		Help: "Total number of application lifecycle transitions",
	}, []string{"action"})

	notificationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Total number of dispatched notifications by outcome",
	}, []string{"status"})

	rankingLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ranking_duration_seconds",
		Help:    "Duration of candidate ranking computations",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, projectTotal, applicationTotal, notificationTotal, rankingLatency, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		projectTotal:      projectTotal,
		applicationTotal:  applicationTotal,
		notificationTotal: notificationTotal,
		rankingLatency:    rankingLatency,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordProjectTransition counts a project lifecycle transition.
func (m *MetricsService) RecordProjectTransition(action string) {
	if m == nil {
		return
	}
	m.projectTotal.WithLabelValues(action).Inc()
}

// RecordApplicationTransition counts an application lifecycle transition.
func (m *MetricsService) RecordApplicationTransition(action string) {
	if m == nil {
		return
	}
	m.applicationTotal.WithLabelValues(action).Inc()
}

// RecordNotification counts a dispatched notification outcome.
func (m *MetricsService) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.notificationTotal.WithLabelValues(status).Inc()
}

// ObserveRanking records the duration of a ranking computation.
func (m *MetricsService) ObserveRanking(duration time.Duration) {
	if m == nil || m.rankingLatency == nil {
		return
	}
	m.rankingLatency.Observe(duration.Seconds())
}
