// Package metrics provides Prometheus metrics for check runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"uartcheck-go/types"
)

// Metrics owns a registry so each run can export exactly its own samples.
type Metrics struct {
	reg *prometheus.Registry

	// ChecksTotal counts check verdicts by check and result (pass, fail).
	ChecksTotal *prometheus.CounterVec
	// CheckDuration measures check latency in seconds.
	CheckDuration *prometheus.HistogramVec
	// FailuresTotal counts failed checks by code.
	FailuresTotal *prometheus.CounterVec
	// RunsTotal counts runs by outcome (passed, failed, aborted).
	RunsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ChecksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uartcheck_checks_total",
				Help: "Total number of checks run",
			},
			[]string{"check", "result"},
		),
		CheckDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uartcheck_check_duration_seconds",
				Help:    "Check duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"check"},
		),
		FailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uartcheck_check_failures_total",
				Help: "Total number of failed checks by failure code",
			},
			[]string{"code"},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uartcheck_runs_total",
				Help: "Total number of runs by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RecordResult records one check verdict.
func (m *Metrics) RecordResult(r types.CheckResult) {
	result := "pass"
	if !r.Pass {
		result = "fail"
		m.FailuresTotal.WithLabelValues(r.Code).Inc()
	}
	m.ChecksTotal.WithLabelValues(r.Check, result).Inc()
	m.CheckDuration.WithLabelValues(r.Check).Observe((time.Duration(r.DurationMs) * time.Millisecond).Seconds())
}

// RecordRun records the outcome of a finished run.
func (m *Metrics) RecordRun(s types.RunSummary) {
	outcome := "passed"
	switch {
	case s.Aborted:
		outcome = "aborted"
	case s.Failed > 0:
		outcome = "failed"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// WriteFile writes the registry in the text exposition format, atomically,
// for a textfile collector to pick up.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
