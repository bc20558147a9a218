// Package metrics exposes prometheus instrumentation for the temp-logger
// daemon. Collectors are package-level and registered once at init; the web
// server serves them on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SamplesTotal counts full sensor sweeps taken.
	SamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "templog_samples_total",
		Help: "Total sensor sweeps performed.",
	})

	// ReadFailuresTotal counts per-channel reads that stayed absent after
	// exhausting retries.
	ReadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "templog_sensor_read_failures_total",
		Help: "Channel reads that failed after all retry attempts.",
	})

	// SessionsStartedTotal counts measurement sessions started.
	SessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "templog_sessions_started_total",
		Help: "Measurement sessions started.",
	})

	// ExportsTotal counts export artifacts written, by format.
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "templog_exports_total",
		Help: "Export artifacts written.",
	}, []string{"format"})

	// Temperature reports the last read temperature per channel id.
	Temperature = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "templog_temperature_celsius",
		Help: "Last temperature read per channel.",
	}, []string{"id"})

	// State reports the lifecycle state as an enum gauge
	// (0=idle 1=waiting 2=running 3=exporting).
	State = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "templog_lifecycle_state",
		Help: "Lifecycle state: 0 idle, 1 waiting for start condition, 2 running, 3 exporting.",
	})
)

func init() {
	prometheus.MustRegister(
		SamplesTotal,
		ReadFailuresTotal,
		SessionsStartedTotal,
		ExportsTotal,
		Temperature,
		State,
	)
}
