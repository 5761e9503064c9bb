package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qdock_jobs_started_total",
		Help: "Docking jobs accepted for optimization.",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qdock_jobs_finished_total",
		Help: "Docking jobs reaching a terminal state, by status.",
	}, []string{"status"})

	costEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qdock_cost_evaluations_total",
		Help: "Cost function evaluations issued to quantum backends.",
	})
)
