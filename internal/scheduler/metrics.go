package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes scheduler counters through Prometheus.
type Metrics struct {
	registry         prometheus.Registerer
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	coalescedTotal   *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	heartbeatsTotal  *prometheus.CounterVec
	sessionAlive     prometheus.Gauge
}

// InitMetrics registers the scheduler metrics. A nil registerer uses the
// default registry.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of report job runs",
			},
			[]string{"kind", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_run_duration_seconds",
				Help:      "Duration of report job runs",
				Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		coalescedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_coalesced_total",
				Help:      "Triggers dropped because the job was already queued or running",
			},
			[]string{"kind"},
		),
		escalationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "escalations_total",
				Help:      "Total number of failure escalations sent",
			},
		),
		heartbeatsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_heartbeats_total",
				Help:      "Session heartbeat probes by result",
			},
			[]string{"result"},
		),
		sessionAlive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_alive",
				Help:      "Whether the portal session is currently believed alive",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.coalescedTotal,
		m.escalationsTotal,
		m.heartbeatsTotal,
		m.sessionAlive,
	)

	return m
}

func (m *Metrics) RecordRun(kind JobKind, status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(string(kind), status).Inc()
	m.runDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (m *Metrics) RecordCoalesced(kind JobKind) {
	m.coalescedTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) RecordEscalation() {
	m.escalationsTotal.Inc()
}

func (m *Metrics) RecordHeartbeat(result string) {
	m.heartbeatsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSessionAlive(alive bool) {
	if alive {
		m.sessionAlive.Set(1)
	} else {
		m.sessionAlive.Set(0)
	}
}
