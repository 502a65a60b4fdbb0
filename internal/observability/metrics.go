package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	BrainCalls       *prometheus.CounterVec
	PlanSteps        prometheus.Histogram
	CommandsEmitted  *prometheus.CounterVec
	CorrelationSkips prometheus.Counter
	ReportLookups    *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live game sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		BrainCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brain_calls_total",
			Help:      "Completion-service calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		PlanSteps: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_steps_per_goal",
			Help:      "Plan steps produced per planning round.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		CommandsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_emitted_total",
			Help:      "Commands emitted by type.",
		}, []string{"type"}),
		CorrelationSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_skips_total",
			Help:      "Commands emitted without a positional plan correlation.",
		}),
		ReportLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_lookups_total",
			Help:      "Status-report registry lookups by result.",
		}, []string{"result"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket frames by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
