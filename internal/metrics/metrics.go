// Package metrics holds the crew process's Prometheus registry: counters
// for waves and mesh message delivery, gauges for in-flight work. There is
// no HTTP server — the registry is gathered in-process for `crew status
// --metrics` rather than scraped, since the project carries no daemon or
// network protocol. Grounded on kubernaut's pkg/infrastructure/metrics
// package-level-registry shape (no concrete kubernaut source survived
// its own test-only package, so the registration style here follows
// client_golang's own promauto convention directly).
package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	WavesStarted = factory.NewCounter(prometheus.CounterOpts{
		Name: "crew_waves_started_total",
		Help: "Number of work waves started.",
	})
	WavesCompleted = factory.NewCounter(prometheus.CounterOpts{
		Name: "crew_waves_completed_total",
		Help: "Number of work waves after which every task was done.",
	})
	WavesBlocked = factory.NewCounter(prometheus.CounterOpts{
		Name: "crew_waves_blocked_total",
		Help: "Number of work waves that ended because every ready task was blocked.",
	})
	MessagesDelivered = factory.NewCounter(prometheus.CounterOpts{
		Name: "crew_messages_delivered_total",
		Help: "Number of inbox messages delivered across the mesh, including broadcasts.",
	})
	TasksInProgress = factory.NewGauge(prometheus.GaugeOpts{
		Name: "crew_tasks_in_progress",
		Help: "Number of tasks currently assigned to a worker.",
	})
)

// Dump gathers the registry into Prometheus's plain text exposition
// format, the shape `crew status --metrics` prints to stdout.
func Dump() (string, error) {
	families, err := Registry.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
