package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/VeniVidiTass/websocket-alive/internal/broadcast"
	"github.com/VeniVidiTass/websocket-alive/internal/config"
	"github.com/VeniVidiTass/websocket-alive/internal/domain"
	"github.com/VeniVidiTass/websocket-alive/internal/feed"
	"github.com/VeniVidiTass/websocket-alive/internal/registry"
)

// feedStatus exposes the change feed listener state for /health.
type feedStatus interface {
	State() feed.State
}

// pinger is the minimal surface needed for the database health check.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	repo      domain.EventRepository
	registry  *registry.Registry
	hub       *broadcast.Hub
	feed      feedStatus
	db        pinger
	startTime time.Time
}

func NewServer(cfg *config.Config, repo domain.EventRepository, reg *registry.Registry, hub *broadcast.Hub, feedState feedStatus, db pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		repo:      repo,
		registry:  reg,
		hub:       hub,
		feed:      feedState,
		db:        db,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
