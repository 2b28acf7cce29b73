package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/calendar"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/validation"
)

// orderService is the concrete implementation of OrderService
type orderService struct {
	orders    repository.OrderRepository
	plans     repository.WeekPlanRepository
	labels    *weekPlanService
	validator *validation.Validator
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

func newOrderService(orders repository.OrderRepository, plans repository.WeekPlanRepository, labels *weekPlanService, v *validation.Validator, pub events.Publisher, loc *time.Location, now func() time.Time, log zerolog.Logger) *orderService {
	return &orderService{
		orders:    orders,
		plans:     plans,
		labels:    labels,
		validator: v,
		publisher: pub,
		loc:       loc,
		now:       now,
		log:       log.With().Str("service", "order").Logger(),
	}
}

// Place stores a client's selection for one day. Days before today in the
// institution's time zone are closed, and the week must have a plan.
func (s *orderService) Place(ctx context.Context, user *auth.Token, year, week, day int, in *models.OrderInput) (*models.MealOrder, error) {
	if user.Role != models.RoleClient {
		return nil, ErrForbidden
	}

	date, err := calendar.DayDate(year, week, day)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateOrder(in).Err(); err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, fmt.Errorf("%w: %s", ErrOrderClosed, date.Format(DateLayout))
	}

	exists, err := s.plans.Exists(ctx, year, week)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPlanMissing, models.PlanKey(year, week))
	}

	order := &models.MealOrder{
		UserID:     user.UserID,
		Year:       year,
		WeekNumber: week,
		DayIndex:   day,
		Menu:       in.Menu,
		Dinner:     in.Dinner,
		Dessert:    in.Dessert,
	}
	if err := s.orders.Upsert(ctx, order); err != nil {
		s.log.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to store order")
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.UserID).
		Str("plan", models.PlanKey(year, week)).
		Int("day", day).
		Str("menu", string(in.Menu)).
		Msg("Order placed")

	ev := events.OrderPlacedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Year:       year,
		WeekNumber: week,
		DayIndex:   day,
		Date:       date.Format(DateLayout),
		Menu:       string(order.Menu),
		Dinner:     order.Dinner,
		Dessert:    order.Dessert,
		PlacedAt:   order.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, events.OrderPlaced, ev); err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID).Msg("Failed to publish order event")
	}

	return order, nil
}

// Mine lists the caller's orders of a week
func (s *orderService) Mine(ctx context.Context, userID string, year, week int) ([]models.MealOrder, error) {
	if err := calendar.Validate(year, week); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, userID, year, week)
}

// Week lists all orders of a week with per-day totals for the kitchen
func (s *orderService) Week(ctx context.Context, year, week int, lang language.Tag) (*models.WeekOrders, error) {
	labels, err := s.labels.Days(year, week, lang)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByWeek(ctx, year, week)
	if err != nil {
		return nil, err
	}

	return &models.WeekOrders{
		Year:       year,
		WeekNumber: week,
		Orders:     orders,
		Totals:     totals(orders, labels),
	}, nil
}

func (s *orderService) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func totals(orders []models.MealOrder, labels []models.DayLabel) []models.DayTotals {
	out := make([]models.DayTotals, len(labels))
	for i, l := range labels {
		out[i] = models.DayTotals{DayIndex: l.Index, Label: l.Label}
	}
	for _, o := range orders {
		if o.DayIndex < 0 || o.DayIndex >= len(out) {
			continue
		}
		t := &out[o.DayIndex]
		switch o.Menu {
		case models.ChoiceBV:
			t.BV++
		case models.ChoiceMeatless:
			t.Meatless++
		}
		if o.Dinner {
			t.Dinner++
		}
		if o.Dessert {
			t.Dessert++
		}
	}
	return out
}
