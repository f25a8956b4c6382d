package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for scenario builds.
type Metrics struct {
	config MetricsConfig

	// Build metrics
	buildsStarted   prometheus.Counter
	buildsCompleted *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec

	// Stage metrics
	stagesExecuted *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec

	// Composition metrics
	bindingsComposed *prometheus.CounterVec

	// Scenario metrics
	linksAdjusted *prometheus.CounterVec
	routesDeleted prometheus.Counter

	// Policy metrics
	policyViolations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	activeBuilds prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op instance: every Record method returns early.
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		buildsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_started_total",
				Help:      "Total number of scenario builds started",
			},
		),
		buildsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_completed_total",
				Help:      "Total number of scenario builds completed by status",
			},
			[]string{"status"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Duration of scenario builds in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		stagesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_executed_total",
				Help:      "Total number of build stages executed",
			},
			[]string{"phase", "stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of build stages in seconds",
				Buckets:   buckets,
			},
			[]string{"phase", "stage"},
		),

		bindingsComposed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bindings_composed_total",
				Help:      "Total number of bindings composed by group and capability",
			},
			[]string{"group", "capability"},
		),

		linksAdjusted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_adjusted_total",
				Help:      "Total number of network links whose allowed modes changed",
			},
			[]string{"area"},
		),
		routesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_deleted_total",
				Help:      "Total number of leg routes deleted for crossing forbidden links",
			},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of configuration policy violations",
			},
			[]string{"policy", "severity"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		activeBuilds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_builds",
				Help:      "Number of scenario builds in progress",
			},
		),
	}

	registry.MustRegister(
		m.buildsStarted,
		m.buildsCompleted,
		m.buildDuration,
		m.stagesExecuted,
		m.stageDuration,
		m.bindingsComposed,
		m.linksAdjusted,
		m.routesDeleted,
		m.policyViolations,
		m.errorsByClass,
		m.errorsByCode,
		m.activeBuilds,
	)

	return m, nil
}

// Build Metrics

// RecordBuildStarted increments the counter for started builds.
func (m *Metrics) RecordBuildStarted() {
	if m == nil || m.buildsStarted == nil {
		return
	}
	m.buildsStarted.Inc()
	m.activeBuilds.Inc()
}

// RecordBuildCompleted records a completed build with its status and duration.
func (m *Metrics) RecordBuildCompleted(status string, duration time.Duration) {
	if m == nil || m.buildsCompleted == nil {
		return
	}
	m.buildsCompleted.WithLabelValues(status).Inc()
	m.buildDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeBuilds.Dec()
}

// Stage Metrics

// RecordStage records one executed stage of a build phase.
func (m *Metrics) RecordStage(phase, stage, status string, duration time.Duration) {
	if m == nil || m.stagesExecuted == nil {
		return
	}
	m.stagesExecuted.WithLabelValues(phase, stage, status).Inc()
	m.stageDuration.WithLabelValues(phase, stage).Observe(duration.Seconds())
}

// Composition Metrics

// RecordBinding records one composed binding.
func (m *Metrics) RecordBinding(group, capability string) {
	if m == nil || m.bindingsComposed == nil {
		return
	}
	m.bindingsComposed.WithLabelValues(group, capability).Inc()
}

// Scenario Metrics

// RecordLinksAdjusted records links whose allowed modes changed inside an area.
func (m *Metrics) RecordLinksAdjusted(area string, count int) {
	if m == nil || m.linksAdjusted == nil {
		return
	}
	m.linksAdjusted.WithLabelValues(area).Add(float64(count))
}

// RecordRoutesDeleted records deleted leg routes.
func (m *Metrics) RecordRoutesDeleted(count int) {
	if m == nil || m.routesDeleted == nil {
		return
	}
	m.routesDeleted.Add(float64(count))
}

// Policy Metrics

// RecordPolicyViolation records a configuration policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m == nil || m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m == nil || m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if m == nil || !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("address", m.config.ListenAddress).Msg("Metrics server stopped")
		}
	}()

	return nil
}
