package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos   *repository.Repositories
	plans   *weekPlanService
	catalog *locale.Catalog
	log     zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, plans *weekPlanService, catalog *locale.Catalog, log zerolog.Logger) *exportService {
	return &exportService{
		repos:   repos,
		plans:   plans,
		catalog: catalog,
		log:     log.With().Str("service", "export").Logger(),
	}
}

// StreamUsers streams users in the specified format. Password hashes are
// never part of an export.
func (s *exportService) StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting users export")

	switch format {
	case "ndjson":
		return s.streamUsersNDJSON(ctx, w)
	case "json":
		return s.streamUsersJSON(ctx, w)
	case "csv":
		return s.streamUsersCSV(ctx, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (s *exportService) streamUsersNDJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=users.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.User.StreamAll(ctx, func(user *models.User) error {
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Users export completed")
	return err
}

func (s *exportService) streamUsersJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=users.json")

	w.Write([]byte("["))
	first := true

	err := s.repos.User.StreamAll(ctx, func(user *models.User) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *exportService) streamUsersCSV(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=users.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"id", "first_name", "last_name", "email", "role", "shortcode", "birth_year", "created_at", "updated_at"})

	return s.repos.User.StreamAll(ctx, func(user *models.User) error {
		return writer.Write([]string{
			user.ID,
			user.FirstName,
			user.LastName,
			user.Email,
			string(user.Role),
			user.Shortcode,
			user.BirthYear,
			user.CreatedAt.UTC().Format(time.RFC3339),
			user.UpdatedAt.UTC().Format(time.RFC3339),
		})
	})
}

// StreamWeekPlanCSV writes the kitchen printout of a week, one row per day.
// Weeks without a plan export their seven dates with empty menus.
func (s *exportService) StreamWeekPlanCSV(ctx context.Context, w http.ResponseWriter, year, week int, lang language.Tag) error {
	labels, err := s.plans.Days(year, week, lang)
	if err != nil {
		return err
	}
	plan, err := s.plans.Get(ctx, year, week)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=weekplan-%s.csv", plan.Key()))

	writer := csv.NewWriter(w)
	writer.Write([]string{"date", "weekday", "bv_menu", "meatless_menu", "dinner", "dessert"})

	for i, day := range plan.Days {
		dessert := ""
		if day.Dessert != nil {
			dessert = day.Dessert.Name
		}
		writer.Write([]string{
			labels[i].DisplayDate,
			labels[i].Weekday,
			day.BVMenu.Name,
			day.MeatlessMenu.Name,
			day.Dinner.Name,
			dessert,
		})
	}

	writer.Flush()
	s.log.Info().Str("plan", plan.Key()).Bool("exists", plan.Exists).Msg("Week plan export completed")
	return writer.Error()
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "users":
		return s.repos.User.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
