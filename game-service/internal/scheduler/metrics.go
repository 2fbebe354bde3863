package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_completion_tasks_scheduled_total",
		Help: "Total number of delayed completion tasks published.",
	})
	tasksRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_completion_tasks_revoked_total",
		Help: "Total number of completion tasks marked revoked.",
	})
)
