package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_completion_tasks_processed_total",
		Help: "Total number of completion tasks that performed a state transition.",
	})
	tasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_completion_tasks_dropped_total",
		Help: "Total number of completion tasks dropped as revoked, stale or targetless.",
	})
)
