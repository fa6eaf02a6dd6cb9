package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/VeniVidiTass/websocket-alive/internal/broadcast"
	"github.com/VeniVidiTass/websocket-alive/internal/config"
	"github.com/VeniVidiTass/websocket-alive/internal/database"
	"github.com/VeniVidiTass/websocket-alive/internal/feed"
	"github.com/VeniVidiTass/websocket-alive/internal/logging"
	"github.com/VeniVidiTass/websocket-alive/internal/registry"
	"github.com/VeniVidiTass/websocket-alive/internal/server"
)

func setupConfig() *config.Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// runGracefulShutdown stops the feed first (no new events), then the hub,
// then the HTTP server, then the pool. A failing step is logged and the
// next step still runs; shutdown never hangs on one resource.
func runGracefulShutdown(srv *server.Server, listener *feed.Listener, hub *broadcast.Hub, pool *pgxpool.Pool) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		listener.Stop(stopCtx)
		cancel()

		hub.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()

		pool.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)

	repo := database.NewEventRepo(pool)
	reg := registry.New()
	hub := broadcast.NewHub(clock)
	dispatcher := broadcast.NewDispatcher(reg, hub)
	listener := feed.NewListener(cfg.DatabaseURL, dispatcher)

	srv := server.NewServer(cfg, repo, reg, hub, listener, pool)

	done := runGracefulShutdown(srv, listener, hub, pool)

	// The server accepts clients before the feed is up: a notification
	// with no subscribers is dropped harmlessly, not an error.
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := listener.Start(startCtx); err != nil {
		slog.Error("Failed to start change feed listener", "error", err)
		os.Exit(1)
	}
	cancel()

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
