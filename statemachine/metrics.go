package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Configuration error reasons used as metric labels.
const (
	reasonMissingState  = "missing_state"
	reasonInvalidTarget = "invalid_target"
	reasonInvalidGraph  = "invalid_graph"
)

// Metric definitions with appropriate labels. State labels use IDs, which are
// stable across clones, so every agent running a graph shares one series.
var (
	stateEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_state_entries_total",
		Help: "Total number of state entries by graph and state",
	}, []string{"graph", "state"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of fired transitions by graph, source and target state",
	}, []string{"graph", "from", "to"})

	actionsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_actions_dispatched_total",
		Help: "Total number of performer calls by graph and phase (enter, tick or exit)",
	}, []string{"graph", "phase"})

	tickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_tick_duration_seconds",
		Help:    "Duration of a controller tick by graph",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"graph"})

	configurationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_configuration_errors_total",
		Help: "Total number of refused switches and invalid graphs by graph and reason",
	}, []string{"graph", "reason"})
)

func sanitizeGraph(graph string) string {
	if graph == "" {
		return "unnamed"
	}

	return graph
}

func sanitizeState(state *State) string {
	if state == nil {
		return "none"
	}

	return state.ID()
}
