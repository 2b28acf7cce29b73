// Package events defines the domain events the service publishes to the broker.
package events

import "time"

// Routing keys
const (
	WeekPlanSaved   = "weekplan.saved"
	WeekPlanMissing = "weekplan.missing"
	OrderPlaced     = "order.placed"
)

// WeekPlanSavedEvent is published after a plan was stored
type WeekPlanSavedEvent struct {
	Key        string    `json:"key"`
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// WeekPlanMissingEvent is published by the reminder job when the coming week
// has no plan yet. Message is localized for the kitchen.
type WeekPlanMissingEvent struct {
	Key        string    `json:"key"`
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	Locale     string    `json:"locale"`
	Message    string    `json:"message"`
	CheckedAt  time.Time `json:"checked_at"`
}

// OrderPlacedEvent is published when a client stores a selection for a day
type OrderPlacedEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	DayIndex   int       `json:"day_index"`
	Date       string    `json:"date"`
	Menu       string    `json:"menu"`
	Dinner     bool      `json:"dinner"`
	Dessert    bool      `json:"dessert"`
	PlacedAt   time.Time `json:"placed_at"`
}
