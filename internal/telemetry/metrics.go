// Package telemetry exposes mission metrics and status over HTTP.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"robobot-mission/internal/types"
)

type Metrics struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	runs        *prometheus.CounterVec
	ticks       prometheus.Counter
	lifecycle   *prometheus.GaugeVec
	runDuration prometheus.Histogram
}

// NewMetrics registers the mission collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robobot_mission_transitions_total",
				Help: "State transitions by machine and destination state.",
			},
			[]string{"machine", "to"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robobot_mission_runs_total",
				Help: "Completed mission runs by outcome.",
			},
			[]string{"outcome"},
		),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robobot_mission_ticks_total",
			Help: "Mission controller ticks.",
		}),
		lifecycle: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "robobot_mission_lifecycle",
				Help: "1 for the current lifecycle state, 0 otherwise.",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "robobot_mission_run_duration_seconds",
			Help:    "Wall time of completed mission runs.",
			Buckets: []float64{10, 30, 60, 90, 120, 180, 240, 300},
		}),
	}
	m.registry.MustRegister(m.transitions, m.runs, m.ticks, m.lifecycle, m.runDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveTransition(machine, to string) {
	m.transitions.WithLabelValues(machine, to).Inc()
}

func (m *Metrics) ObserveTick() {
	m.ticks.Inc()
}

func (m *Metrics) ObserveRun(outcome types.Outcome, d time.Duration) {
	m.runs.WithLabelValues(string(outcome)).Inc()
	m.runDuration.Observe(d.Seconds())
}

// SetLifecycle marks state as the only active lifecycle state.
func (m *Metrics) SetLifecycle(state types.LifecycleState) {
	for _, s := range []types.LifecycleState{
		types.LifecycleIdle,
		types.LifecycleRunning,
		types.LifecycleFinished,
		types.LifecycleLost,
		types.LifecycleAborted,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.lifecycle.WithLabelValues(string(s)).Set(v)
	}
}
