package telemetry

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nccfg/nccfg/pkg/cfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
)

// Metrics provides Prometheus metrics for configuration checks. Each
// instance owns a private registry, so several can coexist in one process.
type Metrics struct {
	config MetricsConfig

	// Parse metrics
	varsParsed  *prometheus.CounterVec
	parseErrors *prometheus.CounterVec

	// Check metrics
	checksCompleted *prometheus.CounterVec
	checkDuration   *prometheus.HistogramVec

	// Policy metrics
	policyFindings *prometheus.CounterVec
	policyReloads  *prometheus.CounterVec
	policiesLoaded prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a no-op instance.
func NewMetrics(mc MetricsConfig) (*Metrics, error) {
	if !mc.Enabled {
		return &Metrics{config: mc}, nil
	}

	namespace := mc.Namespace
	buckets := mc.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   mc,
		registry: registry,

		varsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "variables_parsed_total",
				Help:      "Total number of variable assignments parsed",
			},
			[]string{"variable", "outcome"},
		),
		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of rejected values by error code",
			},
			[]string{"code"},
		),
		checksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_completed_total",
				Help:      "Total number of configuration checks",
			},
			[]string{"status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of configuration checks in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		policyFindings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_findings_total",
				Help:      "Total number of policy findings",
			},
			[]string{"policy", "severity"},
		),
		policyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_reloads_total",
				Help:      "Total number of policy hot reloads",
			},
			[]string{"status"},
		),
		policiesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "policies_loaded",
				Help:      "Current number of loaded policies",
			},
		),
	}

	registry.MustRegister(
		m.varsParsed,
		m.parseErrors,
		m.checksCompleted,
		m.checkDuration,
		m.policyFindings,
		m.policyReloads,
		m.policiesLoaded,
	)

	return m, nil
}

// RecordParse records the outcome of parsing one variable assignment.
// Rejected values are additionally counted by their error code.
func (m *Metrics) RecordParse(variable string, err error) {
	if m.varsParsed == nil {
		return
	}
	if err == nil {
		m.varsParsed.WithLabelValues(variable, "ok").Inc()
		return
	}
	m.varsParsed.WithLabelValues(variable, "rejected").Inc()

	code := "UNKNOWN"
	var bad *cfg.BadInputError
	if errors.As(err, &bad) {
		code = string(bad.Code)
	}
	m.parseErrors.WithLabelValues(code).Inc()
}

// RecordCheck records a completed check with its status and duration.
func (m *Metrics) RecordCheck(status string, duration time.Duration) {
	if m.checksCompleted == nil {
		return
	}
	m.checksCompleted.WithLabelValues(status).Inc()
	m.checkDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordFinding records a single policy finding.
func (m *Metrics) RecordFinding(policy, severity string) {
	if m.policyFindings == nil {
		return
	}
	m.policyFindings.WithLabelValues(policy, severity).Inc()
}

// RecordPolicyReload records a hot reload and the resulting policy count.
func (m *Metrics) RecordPolicyReload(loaded int, err error) {
	if m.policyReloads == nil {
		return
	}
	if err != nil {
		m.policyReloads.WithLabelValues("failed").Inc()
		return
	}
	m.policyReloads.WithLabelValues("ok").Inc()
	m.policiesLoaded.Set(float64(loaded))
}

// SetPoliciesLoaded sets the current number of loaded policies.
func (m *Metrics) SetPoliciesLoaded(count int) {
	if m.policiesLoaded == nil {
		return
	}
	m.policiesLoaded.Set(float64(count))
}

// Registry returns the private registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather writes all collected metrics to w in the Prometheus text format.
func (m *Metrics) Gather(w io.Writer) error {
	if m.registry == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Timer measures the duration of an operation.
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
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves the metrics endpoint in the background when a
// listen address is configured. The returned server can be shut down by
// the caller; it is nil when nothing was started.
func (m *Metrics) StartMetricsServer(logger zerolog.Logger) *http.Server {
	if !m.config.Enabled || m.config.ListenAddress == "" {
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
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", server.Addr).Msg("metrics server stopped")
		}
	}()

	return server
}
