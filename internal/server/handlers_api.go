package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/VeniVidiTass/websocket-alive/internal/domain"
)

type createEventRequest struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleListEvents(c echo.Context) error {
	code := c.Param("code")

	events, err := s.repo.ListByCode(c.Request().Context(), code)
	if err != nil {
		slog.Error("Failed to list events", "code", code, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, events)
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.Code == "" || req.Title == "" || req.Description == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "code, title and description are required"})
	}

	// The insert trigger emits the change notification; nothing is pushed
	// to clients from here.
	event, err := s.repo.Create(c.Request().Context(), req.Code, req.Title, req.Description)
	if err != nil {
		slog.Error("Failed to create event", "code", req.Code, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	slog.Info("Event created", "id", event.ID, "code", event.Code)
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) handleDeleteEvent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid event id"})
	}

	event, err := s.repo.Delete(c.Request().Context(), id)
	if errors.Is(err, domain.ErrEventNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
	}
	if err != nil {
		slog.Error("Failed to delete event", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	slog.Info("Event deleted", "id", event.ID, "code", event.Code)
	return c.JSON(http.StatusOK, map[string]any{
		"message":      "event deleted",
		"deletedEvent": event,
	})
}
