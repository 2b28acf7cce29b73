package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verpflegung/meal-api/internal/database"
	"github.com/verpflegung/meal-api/internal/models"
)

const orderColumns = `id, user_id, year, week_number, day_index, menu, dinner, dessert, created_at, updated_at`

// orderRepo is the concrete implementation of OrderRepository
type orderRepo struct {
	db *database.DB
}

// NewOrderRepo creates a new order repository
func NewOrderRepo(db *database.DB) OrderRepository {
	return &orderRepo{db: db}
}

// Upsert stores the selection of a user for one day, replacing a previous one
func (r *orderRepo) Upsert(ctx context.Context, order *models.MealOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	query := `
		INSERT INTO meal_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, year, week_number, day_index) DO UPDATE SET
			menu = EXCLUDED.menu,
			dinner = EXCLUDED.dinner,
			dessert = EXCLUDED.dessert,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		order.ID, order.UserID, order.Year, order.WeekNumber, order.DayIndex,
		order.Menu, order.Dinner, order.Dessert, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID, &order.CreatedAt)
	return mapError(err)
}

// ListByUser returns a user's orders of one week, Monday first
func (r *orderRepo) ListByUser(ctx context.Context, userID string, year, week int) ([]models.MealOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM meal_orders
		WHERE user_id = $1 AND year = $2 AND week_number = $3
		ORDER BY day_index`
	return r.list(ctx, query, userID, year, week)
}

// ListByWeek returns every order of one week
func (r *orderRepo) ListByWeek(ctx context.Context, year, week int) ([]models.MealOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM meal_orders
		WHERE year = $1 AND week_number = $2
		ORDER BY day_index, user_id`
	return r.list(ctx, query, year, week)
}

func (r *orderRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.MealOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.MealOrder{}
	for rows.Next() {
		var o models.MealOrder
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Year, &o.WeekNumber, &o.DayIndex,
			&o.Menu, &o.Dinner, &o.Dessert, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
