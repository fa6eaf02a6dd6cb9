package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one row of the alive_logs table.
type Event struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Action is the row-level change kind announced by the store.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether the action is one the store can emit.
func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ChangeEvent is a parsed store notification. Data is kept as raw JSON so
// the dispatcher forwards exactly what the store produced.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data"`
	Code   string          `json:"code"`
}

// EventRepository is the read/write facade over the alive_logs store.
type EventRepository interface {
	ListByCode(ctx context.Context, code string) ([]Event, error)
	Create(ctx context.Context, code, title, description string) (Event, error)
	GetByID(ctx context.Context, id int64) (Event, error)
	Delete(ctx context.Context, id int64) (Event, error)
}
