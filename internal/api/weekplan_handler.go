package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/service"
)

// WeekPlanHandler handles week plan endpoints
type WeekPlanHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewWeekPlanHandler creates a new WeekPlanHandler
func NewWeekPlanHandler(services *service.Services, log zerolog.Logger) *WeekPlanHandler {
	return &WeekPlanHandler{
		services: services,
		log:      log.With().Str("handler", "weekplan").Logger(),
	}
}

// Get handles GET /v1/weekplans/:year/:week. Unplanned weeks come back as an
// empty skeleton with exists=false.
func (h *WeekPlanHandler) Get(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	plan, err := h.services.WeekPlan.Get(c.Request.Context(), year, week)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Exists handles HEAD /v1/weekplans/:year/:week
func (h *WeekPlanHandler) Exists(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	exists, err := h.services.WeekPlan.Exists(c.Request.Context(), year, week)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

// Save handles PUT /v1/weekplans/:year/:week
func (h *WeekPlanHandler) Save(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	var in models.WeekPlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	plan, err := h.services.WeekPlan.Save(c.Request.Context(), year, week, &in, currentToken(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Days handles GET /v1/weekplans/:year/:week/days
func (h *WeekPlanHandler) Days(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	days, err := h.services.WeekPlan.Days(year, week, requestLang(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":        year,
		"week_number": week,
		"days":        days,
	})
}
