// Package metrics defines the Prometheus collectors for tool runs and jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pdftools_build_info",
			Help: "Build information for pdf-tools",
		},
		[]string{"version", "commit"},
	)

	toolRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdftools_tool_runs_total",
			Help: "Tool runs by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdftools_tool_duration_seconds",
			Help:    "Time spent running a tool",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"tool"},
	)

	inputBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdftools_input_bytes_total",
			Help: "Bytes of input handed to each tool",
		},
		[]string{"tool"},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdftools_jobs_in_flight",
			Help: "Jobs currently processing",
		},
	)
)

// Register registers every collector with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, toolRuns, toolDuration, inputBytes, jobsInFlight)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// ObserveToolRun records one run of tool. outcome is "success" or "error".
func ObserveToolRun(tool string, input int64, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	toolRuns.WithLabelValues(tool, outcome).Inc()
	toolDuration.WithLabelValues(tool).Observe(d.Seconds())
	inputBytes.WithLabelValues(tool).Add(float64(input))
}

// JobStarted increments the in-flight gauge.
func JobStarted() { jobsInFlight.Inc() }

// JobFinished decrements the in-flight gauge.
func JobFinished() { jobsInFlight.Dec() }
