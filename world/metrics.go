package world

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	worldAgents = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "fsm_world_agents",
		Help: "The number of agents spawned in a world",
	}, []string{"world"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "fsm_world_step_duration_seconds",
		Help:    "Duration of a world step across all agents",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"world"})

	stepErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_world_step_errors_total",
		Help: "The total number of agent ticks that failed",
	}, []string{"world"})

	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "fsm_world_reloads_total",
		Help: "The total number of agents restarted on a reloaded graph, by template",
	}, []string{"world", "template"})
)
