package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Main page
	s.echo.File("/", "web/public/index.html")

	// Historical events read facade
	s.echo.GET("/api/alive/:code", s.handleListEvents)

	// Write endpoints and admin page are debug-mode only
	if s.config.DebugMode() {
		s.echo.File("/admin", "web/public/admin/index.html")
		s.echo.POST("/api/alive", s.handleCreateEvent)
		s.echo.DELETE("/api/alive/:id", s.handleDeleteEvent)
	}

	// WebSocket endpoint
	s.echo.GET("/ws", s.handleWebSocket)
}
