package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/calendar"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
)

const (
	reminderTimeout  = 30 * time.Second
	missingPlanMsgID = "reminder.missingPlan"
)

// PlanChecker answers whether a week has a stored plan
type PlanChecker interface {
	Exists(ctx context.Context, year, week int) (bool, error)
}

// MissingPlanReminderJob warns when the coming ISO week has no plan yet
type MissingPlanReminderJob struct {
	plans     PlanChecker
	publisher events.Publisher
	catalog   *locale.Catalog
	lang      language.Tag
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewMissingPlanReminderJob creates the reminder. Messages are written in the
// catalog's default language.
func NewMissingPlanReminderJob(plans PlanChecker, pub events.Publisher, catalog *locale.Catalog, loc *time.Location, log zerolog.Logger) *MissingPlanReminderJob {
	return &MissingPlanReminderJob{
		plans:     plans,
		publisher: pub,
		catalog:   catalog,
		lang:      catalog.Default(),
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("job", "missing_plan_reminder").Logger(),
	}
}

// Run implements cron.Job
func (j *MissingPlanReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
	defer cancel()

	if _, err := j.Check(ctx); err != nil {
		j.log.Error().Err(err).Msg("Reminder check failed")
	}
}

// Check looks at the week after the current one and publishes a
// weekplan.missing event when it has no plan. It reports whether the plan
// was missing.
func (j *MissingPlanReminderJob) Check(ctx context.Context) (bool, error) {
	year, week := calendar.NextWeek(calendar.ISOWeekOf(j.now().In(j.loc)))

	exists, err := j.plans.Exists(ctx, year, week)
	if err != nil {
		return false, err
	}
	if exists {
		j.log.Debug().Int("year", year).Int("week", week).Msg("Next week is planned")
		return false, nil
	}

	msg := j.catalog.Localize(j.lang, missingPlanMsgID, map[string]any{"Year": year, "Week": week})
	j.log.Warn().Int("year", year).Int("week", week).Msg(msg)

	ev := events.WeekPlanMissingEvent{
		Key:        models.PlanKey(year, week),
		Year:       year,
		WeekNumber: week,
		Locale:     j.lang.String(),
		Message:    msg,
		CheckedAt:  j.now().UTC(),
	}
	if err := j.publisher.Publish(ctx, events.WeekPlanMissing, ev); err != nil {
		j.log.Warn().Err(err).Msg("Failed to publish reminder")
	}
	return true, nil
}
