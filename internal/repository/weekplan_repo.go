package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verpflegung/meal-api/internal/database"
	"github.com/verpflegung/meal-api/internal/models"
)

// weekPlanRepo keeps each plan as a JSONB document in week_plans
type weekPlanRepo struct {
	db *database.DB
}

// NewWeekPlanRepo creates a new week plan repository
func NewWeekPlanRepo(db *database.DB) WeekPlanRepository {
	return &weekPlanRepo{db: db}
}

// Save replaces the whole plan document
func (r *weekPlanRepo) Save(ctx context.Context, plan *models.WeekPlan) error {
	days, err := encodeDays(plan.Days)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO week_plans (id, year, week_number, days, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			days = EXCLUDED.days,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`
	plan.UpdatedAt = time.Now().UTC()
	updatedBy := sql.NullString{String: plan.UpdatedBy, Valid: plan.UpdatedBy != ""}

	_, err = r.db.ExecContext(ctx, query,
		plan.Key(), plan.Year, plan.WeekNumber, days, updatedBy, plan.UpdatedAt,
	)
	return mapError(err)
}

// Get loads a plan. A stored document without exactly seven days is refused.
func (r *weekPlanRepo) Get(ctx context.Context, year, week int) (*models.WeekPlan, error) {
	query := `SELECT year, week_number, days, updated_by, updated_at FROM week_plans WHERE id = $1`

	var (
		plan      models.WeekPlan
		raw       []byte
		updatedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, models.PlanKey(year, week)).Scan(
		&plan.Year, &plan.WeekNumber, &raw, &updatedBy, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	plan.Days, err = decodeDays(plan.Key(), raw)
	if err != nil {
		return nil, err
	}
	plan.UpdatedBy = updatedBy.String

	return &plan, nil
}

// Exists reports whether a plan is stored for the week
func (r *weekPlanRepo) Exists(ctx context.Context, year, week int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM week_plans WHERE id = $1)", models.PlanKey(year, week),
	).Scan(&exists)
	return exists, err
}

func encodeDays(days []models.DayPlan) ([]byte, error) {
	if len(days) != models.DaysPerWeek {
		return nil, fmt.Errorf("%w: %d days", ErrMalformedWeekPlan, len(days))
	}
	b, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to encode days: %w", err)
	}
	return b, nil
}

func decodeDays(key string, raw []byte) ([]models.DayPlan, error) {
	var days []models.DayPlan
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("%w: plan %s: %v", ErrMalformedWeekPlan, key, err)
	}
	if len(days) != models.DaysPerWeek {
		return nil, fmt.Errorf("%w: plan %s has %d days", ErrMalformedWeekPlan, key, len(days))
	}
	return days, nil
}
