package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DaysPerWeek is the fixed number of day entries in a plan, Monday first
const DaysPerWeek = 7

// Menu is one offering of a day. Early plans stored a free-text label only;
// those decode into a Menu carrying just the Name.
type Menu struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Amount      int     `json:"amount,omitempty"`
}

// IsZero reports an empty offering
func (m Menu) IsZero() bool {
	return m == Menu{}
}

// UnmarshalJSON accepts either a label string or a menu object
func (m *Menu) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Menu{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*m = Menu{Name: label}
		return nil
	}
	type plain Menu
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("menu must be a label or an object: %w", err)
	}
	*m = Menu(p)
	return nil
}

// DayPlan holds the offerings of one day. Date is derived from the owning
// plan's year, week and the day's position and is never taken from input.
type DayPlan struct {
	Date         string `json:"date"`
	BVMenu       Menu   `json:"bv_menu"`
	MeatlessMenu Menu   `json:"meatless_menu"`
	Dinner       Menu   `json:"dinner"`
	Dessert      *Menu  `json:"dessert,omitempty"`
}

// WeekPlan is the set of seven daily offerings for one ISO week
type WeekPlan struct {
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	Days       []DayPlan `json:"days"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Key returns the document key of the plan
func (p *WeekPlan) Key() string {
	return PlanKey(p.Year, p.WeekNumber)
}

// PlanKey formats the canonical "<year>-<week>" key
func PlanKey(year, week int) string {
	return fmt.Sprintf("%d-%d", year, week)
}

// WeekPlanInput is the payload of a save request. Dates are ignored.
type WeekPlanInput struct {
	Days []DayPlan `json:"days"`
}

// WeekPlanResponse wraps a plan with whether it is persisted
type WeekPlanResponse struct {
	WeekPlan
	Exists bool `json:"exists"`
}

// DayLabel is one computed day of a week, independent of stored data
type DayLabel struct {
	Index       int    `json:"index"`
	Weekday     string `json:"weekday"`
	Date        string `json:"date"`
	DisplayDate string `json:"display_date"`
	Label       string `json:"label"`
}
