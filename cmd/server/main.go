package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/api"
	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/config"
	"github.com/verpflegung/meal-api/internal/database"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/job"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/service"
	"github.com/verpflegung/meal-api/pkg/logger"
)

func main() {
	rollback := flag.Bool("migrate-down", false, "roll back the last migration and exit")
	flag.Parse()

	// .env is optional, real environment variables win
	envErr := godotenv.Load()

	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting meal API server...")
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("Failed to read .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *rollback {
		if err := db.MigrateDown(cfg.Server.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Optional Redis for token revocation and the week plan cache
	rdb := database.NewRedis(&cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	// Initialize repositories
	repos := repository.New(db, rdb, cfg.Redis.PlanTTL, log)

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	catalog, err := locale.New(cfg.Locale.Default)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load translations")
	}

	sessions := auth.NewSignal()
	defer sessions.Close()

	// Initialize services
	services := service.NewServices(repos, cfg, service.Infra{
		Issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Signal:    sessions,
		Publisher: publisher,
		Catalog:   catalog,
	}, log)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	_, err = services.Auth.SeedAdmin(seedCtx)
	seedCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	// Planning reminder
	scheduler := job.NewScheduler(cfg.Locale.Location(), log)
	if cfg.Reminder.Enabled {
		reminder := job.NewMissingPlanReminderJob(services.WeekPlan, publisher, catalog, cfg.Locale.Location(), log)
		if err := scheduler.Add(cfg.Reminder.Schedule, reminder); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule planning reminder")
		}
	}
	scheduler.Start()
	log.Info().Bool("reminder", cfg.Reminder.Enabled).Msg("Scheduler started")

	// Initialize router
	router := api.NewRouter(services, catalog, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(ctx)

	// end open session streams so Shutdown does not wait on them
	sessions.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// newPublisher connects to the broker when one is configured. Events are
// dropped with a debug log otherwise.
func newPublisher(cfg *config.Config, log zerolog.Logger) events.Publisher {
	if cfg.Broker.URL == "" {
		return events.NewNopPublisher(log)
	}
	pub, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, log)
	if err != nil {
		log.Warn().Err(err).Msg("Broker unavailable, events will not be published")
		return events.NewNopPublisher(log)
	}
	return pub
}
