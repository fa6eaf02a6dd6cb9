package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/VeniVidiTass/websocket-alive/internal/broadcast"
	"github.com/VeniVidiTass/websocket-alive/internal/config"
	"github.com/VeniVidiTass/websocket-alive/internal/domain"
	"github.com/VeniVidiTass/websocket-alive/internal/feed"
	"github.com/VeniVidiTass/websocket-alive/internal/registry"
)

// stubRepo implements domain.EventRepository with overridable functions.
type stubRepo struct {
	listFn   func(ctx context.Context, code string) ([]domain.Event, error)
	createFn func(ctx context.Context, code, title, description string) (domain.Event, error)
	getFn    func(ctx context.Context, id int64) (domain.Event, error)
	deleteFn func(ctx context.Context, id int64) (domain.Event, error)
}

func (s *stubRepo) ListByCode(ctx context.Context, code string) ([]domain.Event, error) {
	if s.listFn != nil {
		return s.listFn(ctx, code)
	}
	return []domain.Event{}, nil
}

func (s *stubRepo) Create(ctx context.Context, code, title, description string) (domain.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, code, title, description)
	}
	return domain.Event{ID: 1, Code: code, Title: title, Description: description, CreatedAt: time.Now()}, nil
}

func (s *stubRepo) GetByID(ctx context.Context, id int64) (domain.Event, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func (s *stubRepo) Delete(ctx context.Context, id int64) (domain.Event, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return domain.Event{}, domain.ErrEventNotFound
}

type stubFeed struct {
	state feed.State
}

func (s *stubFeed) State() feed.State { return s.state }

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

type testEnv struct {
	srv      *Server
	registry *registry.Registry
	hub      *broadcast.Hub
	url      string
}

// newTestEnv builds a Server in debug mode around a stub repository, backed
// by a real registry and hub, served from an httptest server.
func newTestEnv(t *testing.T, repo domain.EventRepository) *testEnv {
	t.Helper()
	return newEnvWithAppEnv(t, repo, "debug")
}

// newProductionEnv builds a Server with the write endpoints hidden.
func newProductionEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithAppEnv(t, &stubRepo{}, "production")
}

func newEnvWithAppEnv(t *testing.T, repo domain.EventRepository, appEnv string) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:      appEnv,
		Port:        "0",
		DatabaseURL: "postgres://ignored",
		LogLevel:    "error",
		LogFormat:   "text",
	}

	reg := registry.New()
	hub := broadcast.NewHub(clockwork.NewRealClock())
	t.Cleanup(hub.Stop)

	srv := NewServer(cfg, repo, reg, hub, &stubFeed{state: feed.StateActive}, &stubPinger{})

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, registry: reg, hub: hub, url: ts.URL}
}

// dialWS opens a client WebSocket against the test server.
func (env *testEnv) dialWS(t *testing.T) *ws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(env.url, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJoin(t *testing.T, conn *ws.Conn, code string) {
	t.Helper()

	data, err := json.Marshal(code)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(broadcast.Envelope{Event: "join-code", Data: data}))
}

func readEnvelope(t *testing.T, conn *ws.Conn) broadcast.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env broadcast.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// expectSilence asserts that no frame arrives within the window.
func expectSilence(t *testing.T, conn *ws.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

// waitForMembers polls until the registry reports want members for code.
func waitForMembers(t *testing.T, reg *registry.Registry, code string, want int) {
	t.Helper()

	for i := 0; i < 100; i++ {
		if len(reg.MembersOf(code)) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("registry never reached %d members for %q", want, code)
}
