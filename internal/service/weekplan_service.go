package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/calendar"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/validation"
)

// DateLayout is the ISO form of day label and event dates
const DateLayout = "2006-01-02"

// weekPlanService is the concrete implementation of WeekPlanService
type weekPlanService struct {
	plans     repository.WeekPlanRepository
	validator *validation.Validator
	publisher events.Publisher
	catalog   *locale.Catalog
	log       zerolog.Logger
}

func newWeekPlanService(plans repository.WeekPlanRepository, v *validation.Validator, pub events.Publisher, catalog *locale.Catalog, log zerolog.Logger) *weekPlanService {
	return &weekPlanService{
		plans:     plans,
		validator: v,
		publisher: pub,
		catalog:   catalog,
		log:       log.With().Str("service", "weekplan").Logger(),
	}
}

// Get returns the stored plan, or an empty plan with Exists=false. Dates are
// always derived from year and week, never read from storage.
func (s *weekPlanService) Get(ctx context.Context, year, week int) (*models.WeekPlanResponse, error) {
	days, err := calendar.Week(year, week, s.planNamer())
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.Get(ctx, year, week)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		plan = &models.WeekPlan{
			Year:       year,
			WeekNumber: week,
			Days:       make([]models.DayPlan, models.DaysPerWeek),
		}
		applyDates(plan.Days, days)
		return &models.WeekPlanResponse{WeekPlan: *plan, Exists: false}, nil
	case err != nil:
		s.log.Error().Err(err).Str("plan", models.PlanKey(year, week)).Msg("Failed to load week plan")
		return nil, err
	}

	applyDates(plan.Days, days)
	return &models.WeekPlanResponse{WeekPlan: *plan, Exists: true}, nil
}

// Save replaces the plan of a week as a whole
func (s *weekPlanService) Save(ctx context.Context, year, week int, in *models.WeekPlanInput, actorID string) (*models.WeekPlan, error) {
	days, err := calendar.Week(year, week, s.planNamer())
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateWeekPlan(in).Err(); err != nil {
		return nil, err
	}

	plan := &models.WeekPlan{
		Year:       year,
		WeekNumber: week,
		Days:       append([]models.DayPlan(nil), in.Days...),
		UpdatedBy:  actorID,
	}
	applyDates(plan.Days, days)

	if err := s.plans.Save(ctx, plan); err != nil {
		s.log.Error().Err(err).Str("plan", plan.Key()).Msg("Failed to save week plan")
		return nil, err
	}

	s.log.Info().Str("plan", plan.Key()).Str("actor_id", actorID).Msg("Week plan saved")

	ev := events.WeekPlanSavedEvent{
		Key:        plan.Key(),
		Year:       year,
		WeekNumber: week,
		UpdatedBy:  actorID,
		SavedAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, events.WeekPlanSaved, ev); err != nil {
		s.log.Warn().Err(err).Str("plan", plan.Key()).Msg("Failed to publish plan event")
	}

	return plan, nil
}

// Exists reports whether a plan is stored for the week
func (s *weekPlanService) Exists(ctx context.Context, year, week int) (bool, error) {
	if err := calendar.Validate(year, week); err != nil {
		return false, err
	}
	return s.plans.Exists(ctx, year, week)
}

// Days computes the seven localized day labels of a week
func (s *weekPlanService) Days(year, week int, lang language.Tag) ([]models.DayLabel, error) {
	days, err := calendar.Week(year, week, s.catalog.Namer(lang))
	if err != nil {
		return nil, err
	}

	labels := make([]models.DayLabel, len(days))
	for i, d := range days {
		labels[i] = models.DayLabel{
			Index:       d.Index,
			Weekday:     d.Label,
			Date:        d.Date.Format(DateLayout),
			DisplayDate: d.DisplayDate,
			Label:       d.String(),
		}
	}
	return labels, nil
}

// planNamer names the weekdays of stored plans in the default language
func (s *weekPlanService) planNamer() calendar.WeekdayNamer {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Namer(s.catalog.Default())
}

// applyDates sets each day's date to "<weekday> <dd/mm/yyyy>", e.g. "Montag 12/08/2024"
func applyDates(plans []models.DayPlan, days []calendar.Day) {
	for i := range plans {
		plans[i].Date = days[i].String()
	}
}
