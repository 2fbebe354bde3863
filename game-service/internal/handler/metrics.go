package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_ws_connections_opened_total",
		Help: "Total number of accepted WebSocket connections.",
	})
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_ws_messages_received_total",
		Help: "Total number of client messages received, by message type.",
	}, []string{"type"})
)
