package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every HoleNOne collector; it is exposed on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		AgentRuns, AgentIterations, ActionTotal,
		OracleDuration, ActiveSessions, SessionEvictions,
		CollaboratorDuration,
	)
}

// AgentRuns counts finished control-loop invocations by flow and outcome.
var AgentRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holenone_agent_runs_total",
		Help: "Finished agent invocations by flow and outcome.",
	},
	[]string{"flow", "outcome"}, // discovery|booking, tee_times_found|booking_confirmed|booking_failed|stalled|error
)

// AgentIterations records how many observe/decide/act cycles a run used.
var AgentIterations = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holenone_agent_iterations",
		Help:    "Observe/decide/act cycles used per invocation.",
		Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
	},
	[]string{"flow"},
)

// ActionTotal counts executed actions by type and result code.
var ActionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holenone_actions_total",
		Help: "Executed browser actions by type and result.",
	},
	[]string{"action", "result"},
)

// OracleDuration is the latency of a single oracle round trip.
var OracleDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holenone_oracle_duration_seconds",
		Help:    "Oracle round-trip latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// ActiveSessions is the number of live browser sessions.
var ActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "holenone_active_sessions",
		Help: "Live browser sessions held by the session manager.",
	},
)

// SessionEvictions counts sessions torn down by reason.
var SessionEvictions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holenone_session_evictions_total",
		Help: "Sessions torn down, by reason.",
	},
	[]string{"reason"}, // idle | explicit | shutdown
)

// CollaboratorDuration is the latency of places, geocoding and ranking calls.
var CollaboratorDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holenone_collaborator_duration_seconds",
		Help:    "External collaborator call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"collaborator"},
)

// MetricsHandler serves the registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
