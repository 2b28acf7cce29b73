package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/service"
	"github.com/verpflegung/meal-api/pkg/logger"
)

const sessionEventsPath = "/v1/session/events"

var (
	adminOnly   = []models.Role{models.RoleAdmin}
	planEditors = []models.Role{models.RoleAdmin, models.RoleKitchenChef}
	staffRoles  = []models.Role{models.RoleAdmin, models.RoleKitchenChef, models.RoleCaretaker, models.RoleServiceStaff}
	clientsOnly = []models.Role{models.RoleClient}
)

// Probe reports database health. A nil Probe skips the checks.
type Probe interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, catalog *locale.Catalog, probe Probe, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	// event streams must reach the client unbuffered
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{sessionEventsPath})))
	router.Use(localeMiddleware(catalog))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	userHandler := NewUserHandler(services, log)
	planHandler := NewWeekPlanHandler(services, log)
	orderHandler := NewOrderHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(probe))
	router.GET("/metrics", metricsHandler(services, probe))

	authed := requireAuth(services.Auth, log)

	// API v1
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", authHandler.Login)
		v1.POST("/auth/logout", authed, authHandler.Logout)
		v1.GET("/destinations/:role", authHandler.Destination)

		session := v1.Group("/session", authed)
		{
			session.GET("", authHandler.Session)
			session.GET("/events", authHandler.Events)
		}

		me := v1.Group("/me", authed)
		{
			me.GET("", authHandler.Me)
			me.PUT("/password", authHandler.ChangePassword)
			me.PUT("/email", requireRole(staffRoles...), authHandler.ChangeEmail)
		}

		users := v1.Group("/users", authed, requireRole(adminOnly...))
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		plans := v1.Group("/weekplans/:year/:week", authed)
		{
			plans.GET("", planHandler.Get)
			plans.HEAD("", planHandler.Exists)
			plans.PUT("", requireRole(planEditors...), planHandler.Save)
			plans.GET("/days", planHandler.Days)
			plans.GET("/export", requireRole(staffRoles...), exportHandler.StreamWeekPlan)
		}

		orders := v1.Group("/orders/:year/:week", authed)
		{
			orders.GET("", requireRole(staffRoles...), orderHandler.Week)
			orders.GET("/mine", requireRole(clientsOnly...), orderHandler.Mine)
			orders.PUT("/:day", requireRole(clientsOnly...), orderHandler.Place)
		}

		exports := v1.Group("/exports", authed, requireRole(adminOnly...))
		{
			exports.GET("/users", exportHandler.StreamUsers)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(probe Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if probe != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := probe.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
		})
	}
}

// metricsHandler returns account counts and pool statistics
func metricsHandler(services *service.Services, probe Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		usersCount, err := services.Export.GetCount(ctx, "users")
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}

		db := gin.H{"users": usersCount}
		if probe != nil {
			stats := probe.Stats()
			db["open_connections"] = stats.OpenConnections
			db["in_use"] = stats.InUse
			db["idle"] = stats.Idle
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  db,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
