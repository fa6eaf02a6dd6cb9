package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/VeniVidiTass/websocket-alive/internal/broadcast"
	"github.com/VeniVidiTass/websocket-alive/internal/domain"
	"github.com/VeniVidiTass/websocket-alive/internal/metrics"
)

// eventJoinCode is the only inbound client request: subscribe to a code.
const eventJoinCode = "join-code"

const historyFetchTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket runs one connection session: register with the hub, serve
// join-code requests from the read pump, and on disconnect leave the
// registry exactly once, from whatever state the session was in.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	connID := s.hub.Register(conn)
	slog.Info("Client connected", "conn_id", connID.String())

	// Canceled on disconnect so an in-flight history fetch is abandoned.
	sessionCtx, cancel := context.WithCancel(context.Background())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleClientMessage(sessionCtx, connID, msg)
	}

	cancel()
	s.registry.Leave(connID)
	s.hub.Unregister(connID)
	slog.Info("Client disconnected", "conn_id", connID.String())

	return nil
}

func (s *Server) handleClientMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var env broadcast.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		slog.Warn("Ignoring malformed client message", "conn_id", connID.String(), "error", err)
		s.hub.Send(connID, broadcast.EventError, "invalid message")
		return
	}

	switch env.Event {
	case eventJoinCode:
		var code string
		if err := json.Unmarshal(env.Data, &code); err != nil {
			s.hub.Send(connID, broadcast.EventError, "invalid join-code payload")
			return
		}
		s.handleJoin(ctx, connID, code)
	default:
		slog.Debug("Ignoring unknown client event", "conn_id", connID.String(), "event", env.Event)
	}
}

// handleJoin subscribes the connection to code and unicasts the code's
// historical snapshot. A failed history read keeps the membership: the
// client still gets live events and may rejoin for a fresh snapshot.
func (s *Server) handleJoin(ctx context.Context, connID uuid.UUID, code string) {
	if code == "" {
		s.hub.Send(connID, broadcast.EventError, domain.ErrEmptyCode.Error())
		return
	}

	s.registry.Join(connID, code)
	slog.Info("Client joined code", "conn_id", connID.String(), "code", code)

	fetchCtx, cancel := context.WithTimeout(ctx, historyFetchTimeout)
	defer cancel()

	events, err := s.repo.ListByCode(fetchCtx, code)
	if err != nil {
		metrics.HistoryFetchErrors.Inc()
		slog.Error("Failed to fetch historical events", "conn_id", connID.String(), "code", code, "error", err)
		s.hub.Send(connID, broadcast.EventError, "failed to fetch events")
		return
	}

	s.hub.Send(connID, broadcast.EventHistorical, events)
	slog.Debug("Sent historical events", "conn_id", connID.String(), "code", code, "count", len(events))
}
