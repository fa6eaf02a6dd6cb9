package broadcast

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/VeniVidiTass/websocket-alive/internal/domain"
	"github.com/VeniVidiTass/websocket-alive/internal/metrics"
)

// Outbound event names.
const (
	EventNew        = "new-event"
	EventUpdated    = "updated-event"
	EventDeleted    = "deleted-event"
	EventHistorical = "historical-events"
	EventError      = "error"
)

// membership resolves the current subscribers of a code.
type membership interface {
	MembersOf(code string) []uuid.UUID
}

// sender pushes one event frame to one connection.
type sender interface {
	Send(connID uuid.UUID, event string, payload any)
}

// Dispatcher routes a parsed change event to every connection currently
// subscribed to its code. It owns no state of its own: the registry is the
// authoritative membership source and the hub does the pushing.
type Dispatcher struct {
	registry membership
	hub      sender
}

func NewDispatcher(registry membership, hub sender) *Dispatcher {
	return &Dispatcher{registry: registry, hub: hub}
}

// Dispatch fans the event out to the members subscribed at this instant.
// Delivery is fire-and-forget per connection.
func (d *Dispatcher) Dispatch(ev domain.ChangeEvent) {
	name, ok := eventNameFor(ev.Action)
	if !ok {
		slog.Warn("Dropping change event with unknown action", "action", string(ev.Action), "code", ev.Code)
		return
	}

	members := d.registry.MembersOf(ev.Code)
	for _, connID := range members {
		d.hub.Send(connID, name, ev.Data)
	}

	metrics.EventsDispatched.WithLabelValues(string(ev.Action)).Inc()
	slog.Debug("Dispatched change event", "code", ev.Code, "action", string(ev.Action), "recipients", len(members))
}

func eventNameFor(action domain.Action) (string, bool) {
	switch action {
	case domain.ActionInsert:
		return EventNew, true
	case domain.ActionUpdate:
		return EventUpdated, true
	case domain.ActionDelete:
		return EventDeleted, true
	}
	return "", false
}
