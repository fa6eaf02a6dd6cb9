package database

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/VeniVidiTass/websocket-alive/internal/domain"
)

var (
	testPool        *pgxpool.Pool
	testDatabaseURL string
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}
	testDatabaseURL = connStr

	testPool, err = Connect(ctx, testDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func TestEventRepo_CreateAndList(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	repo := NewEventRepo(testPool)

	first, err := repo.Create(ctx, "list-code", "first", "first event")
	require.NoError(t, err)
	second, err := repo.Create(ctx, "list-code", "second", "second event")
	require.NoError(t, err)

	events, err := repo.ListByCode(ctx, "list-code")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
}

func TestEventRepo_ListUnknownCodeIsEmpty(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	repo := NewEventRepo(testPool)

	events, err := repo.ListByCode(ctx, "no-such-code")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventRepo_DeleteReturnsRow(t *testing.T) {
	skipIfShort(t)
	ctx := context.Background()
	repo := NewEventRepo(testPool)

	created, err := repo.Create(ctx, "delete-code", "doomed", "to be deleted")
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "doomed", deleted.Title)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

// The trigger must announce every insert on data_changes with the payload
// shape the feed listener parses.
func TestNotifyTrigger_EmitsChangePayload(t *testing.T) {
	skipIfShort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	listenConn, err := pgx.Connect(ctx, testDatabaseURL)
	require.NoError(t, err)
	defer listenConn.Close(ctx)

	_, err = listenConn.Exec(ctx, "LISTEN data_changes")
	require.NoError(t, err)

	repo := NewEventRepo(testPool)
	created, err := repo.Create(ctx, "notify-code", "ping", "trigger check")
	require.NoError(t, err)

	notification, err := listenConn.WaitForNotification(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data_changes", notification.Channel)

	var payload struct {
		Table  string          `json:"table"`
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
		Code   string          `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(notification.Payload), &payload))
	assert.Equal(t, "alive_logs", payload.Table)
	assert.Equal(t, "INSERT", payload.Action)
	assert.Equal(t, "notify-code", payload.Code)

	var row domain.Event
	require.NoError(t, json.Unmarshal(payload.Data, &row))
	assert.Equal(t, created.ID, row.ID)
	assert.Equal(t, "ping", row.Title)
}
