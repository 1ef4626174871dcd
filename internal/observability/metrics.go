package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_events_published_total",
		Help: "Events published to the cross-worker relay.",
	}, []string{"event"})

	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_events_received_total",
		Help: "Events received from the cross-worker relay.",
	}, []string{"event"})

	ClientEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_client_events_total",
		Help: "Inbound client events by name and result.",
	}, []string{"event", "result"})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatroom_connected_clients",
		Help: "Websocket clients attached to this worker.",
	})

	SweptEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_swept_entities_total",
		Help: "Entities evicted by the expiry sweeper.",
	}, []string{"type"})
)
