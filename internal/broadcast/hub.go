package broadcast

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/VeniVidiTass/websocket-alive/internal/metrics"
)

// Envelope is the one-object-per-frame wire format: an event name plus its
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn    *websocket.Conn
	replyCh chan uuid.UUID
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	connID uuid.UUID
}

func (cmdUnregister) hubCmd() {}

type cmdSend struct {
	connID uuid.UUID
	data   []byte
}

func (cmdSend) hubCmd() {}

type cmdCount struct {
	replyCh chan int
}

func (cmdCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Hub ---

// Hub owns every live client transport. A single goroutine consumes the
// command channel, so the clients map needs no lock. Writes to a client go
// through its clientWriter queue and never block the hub loop.
type Hub struct {
	cmdCh   chan hubCmd
	clock   clockwork.Clock
	clients map[uuid.UUID]*clientWriter
	done    chan struct{}
}

func NewHub(clock clockwork.Clock) *Hub {
	hub := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clock:   clock,
		clients: make(map[uuid.UUID]*clientWriter),
		done:    make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.connID)
		case cmdSend:
			h.handleSend(c)
		case cmdCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	connID := uuid.New()
	h.clients[connID] = newClientWriter(c.conn, h.clock)
	metrics.ConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client registered", "conn_id", connID.String(), "total_clients", len(h.clients))
	c.replyCh <- connID
}

func (h *Hub) handleUnregister(connID uuid.UUID) {
	cw, exists := h.clients[connID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, connID)
	metrics.ConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client unregistered", "conn_id", connID.String(), "total_clients", len(h.clients))
}

func (h *Hub) handleSend(c cmdSend) {
	cw, exists := h.clients[c.connID]
	if !exists {
		// Raced against a disconnect; drop silently.
		return
	}

	select {
	case cw.sendChannel <- c.data:
	default:
		metrics.DroppedSends.Inc()
		slog.Warn("Dropping frame for slow client", "conn_id", c.connID.String())
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for connID, cw := range h.clients {
		cw.stopGraceful("Server shutting down")
		delete(h.clients, connID)
	}
	metrics.ConnectedClients.Set(0)
}

// --- Public API ---

// Register assigns an id to conn and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) uuid.UUID {
	replyCh := make(chan uuid.UUID, 1)
	h.cmdCh <- cmdRegister{conn: conn, replyCh: replyCh}
	return <-replyCh
}

// Unregister stops the connection's writer and closes its transport.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.cmdCh <- cmdUnregister{connID: connID}
}

// Send pushes one event frame to a single connection. Fire-and-forget: an
// unknown connection or a full send queue drops the frame.
func (h *Hub) Send(connID uuid.UUID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to marshal envelope", "event", event, "error", err)
		return
	}
	h.cmdCh <- cmdSend{connID: connID, data: frame}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdCount{replyCh: replyCh}
	return <-replyCh
}

// Stop closes all client connections and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
	<-h.done
}
