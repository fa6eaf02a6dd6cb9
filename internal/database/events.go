package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VeniVidiTass/websocket-alive/internal/domain"
)

// EventRepo is the Postgres implementation of domain.EventRepository.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// ListByCode returns the full historical sequence for one code, oldest
// first. A code with no rows yields an empty slice, not an error.
func (r *EventRepo) ListByCode(ctx context.Context, code string) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, title, description, created_at
		FROM alive_logs
		WHERE code = $1
		ORDER BY created_at ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Code, &ev.Title, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

// Create inserts an event. The alive_logs trigger emits the change
// notification; the broker never announces writes itself.
func (r *EventRepo) Create(ctx context.Context, code, title, description string) (domain.Event, error) {
	var ev domain.Event
	err := r.pool.QueryRow(ctx, `
		INSERT INTO alive_logs (code, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, code, title, description, created_at
	`, code, title, description).Scan(&ev.ID, &ev.Code, &ev.Title, &ev.Description, &ev.CreatedAt)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	return ev, nil
}

func (r *EventRepo) GetByID(ctx context.Context, id int64) (domain.Event, error) {
	var ev domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, title, description, created_at
		FROM alive_logs
		WHERE id = $1
	`, id).Scan(&ev.ID, &ev.Code, &ev.Title, &ev.Description, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to get event: %w", err)
	}

	return ev, nil
}

// Delete removes an event and returns the deleted row. The trigger emits
// the DELETE notification.
func (r *EventRepo) Delete(ctx context.Context, id int64) (domain.Event, error) {
	var ev domain.Event
	err := r.pool.QueryRow(ctx, `
		DELETE FROM alive_logs
		WHERE id = $1
		RETURNING id, code, title, description, created_at
	`, id).Scan(&ev.ID, &ev.Code, &ev.Title, &ev.Description, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to delete event: %w", err)
	}

	return ev, nil
}
