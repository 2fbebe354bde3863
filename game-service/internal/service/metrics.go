package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики переходов жизненного цикла построек.
var (
	buildingsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_buildings_started_total",
		Help: "Total number of building constructions started.",
	})
	buildingsAccelerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_buildings_accelerated_total",
		Help: "Total number of successful acceleration operations.",
	})
	buildingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_buildings_completed_total",
		Help: "Total number of buildings transitioned to completed.",
	})
)
