package models

import "time"

// MenuChoice is the lunch selection of a client for one day
type MenuChoice string

const (
	ChoiceNone     MenuChoice = "none"
	ChoiceBV       MenuChoice = "bv"
	ChoiceMeatless MenuChoice = "meatless"
)

// ValidChoices defines allowed lunch selections
var ValidChoices = map[MenuChoice]bool{
	ChoiceNone:     true,
	ChoiceBV:       true,
	ChoiceMeatless: true,
}

// MealOrder is a client's selection for a single day of a planned week.
// There is at most one order per user and day.
type MealOrder struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Year       int        `json:"year" db:"year"`
	WeekNumber int        `json:"week_number" db:"week_number"`
	DayIndex   int        `json:"day_index" db:"day_index"`
	Menu       MenuChoice `json:"menu" db:"menu"`
	Dinner     bool       `json:"dinner" db:"dinner"`
	Dessert    bool       `json:"dessert" db:"dessert"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// OrderInput is the payload of a client's selection
type OrderInput struct {
	Menu    MenuChoice `json:"menu"`
	Dinner  bool       `json:"dinner"`
	Dessert bool       `json:"dessert"`
}

// DayTotals counts the selections of one day for the kitchen
type DayTotals struct {
	DayIndex int    `json:"day_index"`
	Label    string `json:"label"`
	BV       int    `json:"bv"`
	Meatless int    `json:"meatless"`
	Dinner   int    `json:"dinner"`
	Dessert  int    `json:"dessert"`
}

// WeekOrders is the staff view of a week's orders
type WeekOrders struct {
	Year       int         `json:"year"`
	WeekNumber int         `json:"week_number"`
	Orders     []MealOrder `json:"orders"`
	Totals     []DayTotals `json:"totals"`
}
