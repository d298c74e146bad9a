package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// MetricsSink is a prometheus-backed implementation of schemas.Sink. It
// records per-stage outcomes and durations for every workflow run.
type MetricsSink struct {
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetricsSink registers the engine metrics on the given registerer and
// returns the sink. Pass prometheus.DefaultRegisterer in production.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foreman",
			Subsystem: "workflow",
			Name:      "stage_events_total",
			Help:      "Workflow stage events by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "foreman",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each workflow stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
	}
	reg.MustRegister(s.stageTotal, s.stageDuration)
	return s
}

// Emit implements schemas.Sink.
func (s *MetricsSink) Emit(event schemas.Event) {
	outcome := "ok"
	if event.Err != nil {
		outcome = "error"
	}
	stage := string(event.Stage)
	s.stageTotal.WithLabelValues(stage, outcome).Inc()
	if event.Duration > 0 {
		s.stageDuration.WithLabelValues(stage).Observe(event.Duration.Seconds())
	}
}

// NopSink discards all events. Used when metrics are not wired.
type NopSink struct{}

// Emit implements schemas.Sink.
func (NopSink) Emit(schemas.Event) {}
