package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/VeniVidiTass/websocket-alive/internal/domain"
	"github.com/VeniVidiTass/websocket-alive/internal/metrics"
)

const (
	// channelName is the single notification channel carrying every
	// row-level change, for all codes.
	channelName = "data_changes"

	// trackedTable filters the feed down to the entity this broker relays.
	trackedTable = "alive_logs"
)

// State of the listener's store connection.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateFailed   State = "failed"
)

// dispatcher receives each parsed change event.
type dispatcher interface {
	Dispatch(ev domain.ChangeEvent)
}

// Listener owns the one persistent LISTEN connection to the store. The
// connection is dedicated to notifications and never used for queries.
//
// A connection failure moves the listener to StateFailed and leaves it
// there: real-time delivery stays degraded until the process restarts.
// Clients can still read fresh history by rejoining.
type Listener struct {
	databaseURL string
	dispatcher  dispatcher

	mu     sync.Mutex
	state  State
	conn   *pgx.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(databaseURL string, dispatcher dispatcher) *Listener {
	return &Listener{
		databaseURL: databaseURL,
		dispatcher:  dispatcher,
		state:       StateInactive,
	}
}

// Start opens the dedicated connection and subscribes to the channel.
// Calling Start while the listener is active is a no-op, so a duplicate
// subscription can never exist.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateActive {
		slog.Info("Change feed listener already active")
		return nil
	}

	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect feed listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("failed to listen on %s: %w", channelName, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	l.conn = conn
	l.cancel = cancel
	l.done = make(chan struct{})
	l.setStateLocked(StateActive)

	go l.listenLoop(loopCtx, conn, l.done)

	slog.Info("Change feed listener started", "channel", channelName)
	return nil
}

// Stop unsubscribes and closes the connection, tolerating it already being
// gone.
func (l *Listener) Stop(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.done != nil {
		<-l.done
		l.done = nil
	}

	if l.conn != nil {
		if _, err := l.conn.Exec(ctx, "UNLISTEN "+channelName); err != nil {
			slog.Warn("Failed to unlisten", "channel", channelName, "error", err)
		}
		if err := l.conn.Close(ctx); err != nil {
			slog.Warn("Failed to close feed connection", "error", err)
		}
		l.conn = nil
	}

	l.setStateLocked(StateInactive)
	slog.Info("Change feed listener stopped")
}

// State returns the current listener state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Listener) listenLoop(ctx context.Context, conn *pgx.Conn, done chan struct{}) {
	var failure error

	for failure == nil {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				failure = err
			}
			break
		}

		if notification.Channel != channelName {
			continue
		}

		metrics.FeedNotifications.Inc()
		l.handlePayload(notification.Payload)
	}

	// done must be closed before taking the mutex: Stop holds the mutex
	// while waiting on done.
	close(done)

	if failure != nil {
		l.markFailed(failure)
	}
}

// handlePayload parses one raw notification and hands it to the dispatcher.
// Malformed payloads are logged and dropped; they never stop the loop.
func (l *Listener) handlePayload(payload string) {
	ev, err := parseNotification([]byte(payload))
	if err != nil {
		metrics.FeedMalformedPayloads.Inc()
		slog.Error("Dropping malformed feed payload", "error", err)
		return
	}

	// The channel legitimately carries events for other tables.
	if ev.Table != trackedTable {
		return
	}

	l.dispatcher.Dispatch(ev)
}

func (l *Listener) markFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A Stop that raced the failing loop has already cleaned up.
	if l.state != StateActive {
		return
	}

	slog.Error("Change feed connection failed, real-time delivery degraded until restart", "error", err)

	if l.conn != nil {
		_ = l.conn.Close(context.Background())
		l.conn = nil
	}
	l.cancel = nil
	l.done = nil
	l.setStateLocked(StateFailed)
}

func (l *Listener) setStateLocked(state State) {
	l.state = state
	switch state {
	case StateInactive:
		metrics.FeedState.Set(0)
	case StateActive:
		metrics.FeedState.Set(1)
	case StateFailed:
		metrics.FeedState.Set(2)
	}
}

func parseNotification(payload []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to parse notification payload: %w", err)
	}
	if ev.Table == "" {
		return domain.ChangeEvent{}, fmt.Errorf("notification payload has no table")
	}
	if !ev.Action.Valid() {
		return domain.ChangeEvent{}, fmt.Errorf("notification payload has unknown action %q", string(ev.Action))
	}
	return ev, nil
}
