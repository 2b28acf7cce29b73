package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/config"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/validation"
)

// AuthService gates access: login, logout and token checks
type AuthService interface {
	Login(ctx context.Context, identifier, secret string) (*models.User, *auth.Token, error)
	Logout(ctx context.Context, tok *auth.Token) error
	Authenticate(ctx context.Context, raw string) (*auth.Token, error)
	Watch(ctx context.Context, tok *auth.Token) (<-chan bool, error)
	SeedAdmin(ctx context.Context) (bool, error)
}

// UserService defines account administration and self service
type UserService interface {
	Create(ctx context.Context, in *models.UserInput) (*models.CreatedUser, error)
	Update(ctx context.Context, id string, in *models.UserInput) (*models.CreatedUser, error)
	Delete(ctx context.Context, actorID, id string) error
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ChangeEmail(ctx context.Context, userID, email string) (*models.User, error)
}

// WeekPlanService defines week plan operations
type WeekPlanService interface {
	Get(ctx context.Context, year, week int) (*models.WeekPlanResponse, error)
	Save(ctx context.Context, year, week int, in *models.WeekPlanInput, actorID string) (*models.WeekPlan, error)
	Exists(ctx context.Context, year, week int) (bool, error)
	Days(year, week int, lang language.Tag) ([]models.DayLabel, error)
}

// OrderService defines meal order operations
type OrderService interface {
	Place(ctx context.Context, user *auth.Token, year, week, day int, in *models.OrderInput) (*models.MealOrder, error)
	Mine(ctx context.Context, userID string, year, week int) ([]models.MealOrder, error)
	Week(ctx context.Context, year, week int, lang language.Tag) (*models.WeekOrders, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error
	StreamWeekPlanCSV(ctx context.Context, w http.ResponseWriter, year, week int, lang language.Tag) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// Infra bundles the process-wide collaborators of the services
type Infra struct {
	Issuer    *auth.Issuer
	Signal    *auth.Signal
	Publisher events.Publisher
	Catalog   *locale.Catalog
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Auth     AuthService
	User     UserService
	WeekPlan WeekPlanService
	Order    OrderService
	Export   ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, infra Infra, log zerolog.Logger) *Services {
	v := validation.NewValidator()
	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := cfg.Locale.Location()

	planSvc := newWeekPlanService(repos.WeekPlan, v, infra.Publisher, infra.Catalog, log)

	return &Services{
		Auth:     newAuthService(repos.User, repos.Tokens, infra.Issuer, infra.Signal, cfg.Auth, log),
		User:     newUserService(repos.User, v, cfg.Auth.BcryptCost, infra.Signal, log),
		WeekPlan: planSvc,
		Order:    newOrderService(repos.Order, repos.WeekPlan, planSvc, v, infra.Publisher, loc, clock, log),
		Export:   newExportService(repos, planSvc, infra.Catalog, log),
	}
}
