package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/database"
	"github.com/verpflegung/meal-api/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByShortcode(ctx context.Context, shortcode string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.User) error) error
}

// WeekPlanRepository stores one document per ISO week, keyed "<year>-<week>"
type WeekPlanRepository interface {
	Save(ctx context.Context, plan *models.WeekPlan) error
	Get(ctx context.Context, year, week int) (*models.WeekPlan, error)
	Exists(ctx context.Context, year, week int) (bool, error)
}

// OrderRepository defines the interface for meal order operations
type OrderRepository interface {
	Upsert(ctx context.Context, order *models.MealOrder) error
	ListByUser(ctx context.Context, userID string, year, week int) ([]models.MealOrder, error)
	ListByWeek(ctx context.Context, year, week int) ([]models.MealOrder, error)
}

// TokenStore remembers revoked token IDs until the token would have expired
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User     UserRepository
	WeekPlan WeekPlanRepository
	Order    OrderRepository
	Tokens   TokenStore
}

// New creates all repositories with the given database connection. A nil
// Redis client selects the in-memory token store and disables plan caching.
func New(db *database.DB, rdb *redis.Client, planTTL time.Duration, log zerolog.Logger) *Repositories {
	repos := &Repositories{
		User:     NewUserRepo(db),
		WeekPlan: NewWeekPlanRepo(db),
		Order:    NewOrderRepo(db),
		Tokens:   NewMemoryTokenStore(),
	}

	if rdb != nil {
		repos.WeekPlan = NewCachedWeekPlanRepo(repos.WeekPlan, rdb, planTTL, log)
		repos.Tokens = NewRedisTokenStore(rdb)
	}

	return repos
}
