package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broker metrics
var (
	// ConnectedClients tracks currently connected WebSocket clients.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	// ActiveCodes tracks codes with at least one subscriber.
	ActiveCodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_active_codes",
			Help: "Codes with at least one subscribed client",
		},
	)

	// EventsDispatched tracks change events fanned out, by action.
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_events_dispatched_total",
			Help: "Change events fanned out to subscribers, by action",
		},
		[]string{"action"},
	)

	// DroppedSends tracks frames dropped because a client's send queue was full.
	DroppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_dropped_sends_total",
			Help: "Outbound frames dropped due to a full per-client send queue",
		},
	)

	// HistoryFetchErrors tracks failed historical-snapshot reads on join.
	HistoryFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_history_fetch_errors_total",
			Help: "Failed historical snapshot reads during join",
		},
	)
)

// Change feed metrics
var (
	// FeedNotifications tracks raw notifications received from the store.
	FeedNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_notifications_total",
			Help: "Raw notifications received on the change feed",
		},
	)

	// FeedMalformedPayloads tracks notifications dropped because they failed to parse.
	FeedMalformedPayloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_malformed_payloads_total",
			Help: "Change feed notifications dropped as malformed",
		},
	)

	// FeedState reports the listener state (0=inactive, 1=active, 2=failed).
	FeedState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_state",
			Help: "Change feed listener state (0=inactive, 1=active, 2=failed)",
		},
	)
)
