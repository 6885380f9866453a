package adapter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

const metricsNamespace = "modimporter"

// MetricsAdapter records per-run counters.
type MetricsAdapter interface {
	// Observe adds one run report to the counters.
	Observe(report m.RunReport)

	// Flush writes the counters to a node-exporter textfile. An empty path
	// disables the export.
	Flush(path string) error
}

// PrometheusMetricsAdapter keeps counters in a private prometheus registry.
type PrometheusMetricsAdapter struct {
	registry   *prometheus.Registry
	directives *prometheus.CounterVec
	targets    *prometheus.CounterVec
	cleanups   *prometheus.CounterVec
	mods       prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewPrometheusMetricsAdapter registers the run counters.
func NewPrometheusMetricsAdapter() *PrometheusMetricsAdapter {
	a := &PrometheusMetricsAdapter{
		registry: prometheus.NewRegistry(),
		directives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "directives_applied_total",
			Help:      "Directives applied, by merge mode.",
		}, []string{"mode"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "targets_total",
			Help:      "Target files processed, by outcome.",
		}, []string{"status"}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cleanup_actions_total",
			Help:      "Backup entries handled by cleanup, by action.",
		}, []string{"action"}),
		mods: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mods",
			Help:      "Mods with a script in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Start of the last run.",
		}),
	}

	a.registry.MustRegister(a.directives, a.targets, a.cleanups, a.mods, a.lastRun)

	return a
}

// Observe implements MetricsAdapter.
func (a *PrometheusMetricsAdapter) Observe(report m.RunReport) {
	for _, t := range report.Targets {
		a.targets.WithLabelValues(t.Status.String()).Inc()

		if t.Status == m.Patched {
			a.directives.WithLabelValues(t.Mode.String()).Add(float64(t.Directives))
		}
	}

	for _, c := range report.Cleaned {
		a.cleanups.WithLabelValues(c.Action.String()).Inc()
	}

	a.mods.Set(float64(report.Mods))

	if !report.Started.IsZero() {
		a.lastRun.Set(float64(report.Started.Unix()))
	}
}

// Flush implements MetricsAdapter.
func (a *PrometheusMetricsAdapter) Flush(path string) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}

// Registry exposes the underlying registry.
func (a *PrometheusMetricsAdapter) Registry() *prometheus.Registry {
	return a.registry
}
