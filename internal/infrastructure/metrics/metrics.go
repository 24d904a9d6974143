package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_active_connections",
		Help: "Live websocket connections.",
	})

	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatrelay_room_members",
		Help: "Live connections per room.",
	}, []string{"room"})

	MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_messages_relayed_total",
		Help: "Chat messages relayed, by delivery scope.",
	}, []string{"scope"}) // room, global, unicast

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_events_total",
		Help: "Inbound connection events handled, by name.",
	}, []string{"event"})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_persist_failures_total",
		Help: "Store writes that failed and were degraded, by entity.",
	}, []string{"entity"})
)
