package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/service"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamUsers handles GET /v1/exports/users?format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamUsers(c *gin.Context) {
	format := c.DefaultQuery("format", "ndjson")
	if format != "ndjson" && format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv"})
		return
	}

	h.log.Info().Str("format", format).Msg("Starting streaming export")

	if err := h.services.Export.StreamUsers(c.Request.Context(), c.Writer, format); err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
	}
}

// StreamWeekPlan handles GET /v1/weekplans/:year/:week/export
func (h *ExportHandler) StreamWeekPlan(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	err := h.services.Export.StreamWeekPlanCSV(c.Request.Context(), c.Writer, year, week, requestLang(c))
	if err == nil {
		return
	}
	if c.Writer.Written() {
		h.log.Error().Err(err).Int("year", year).Int("week", week).Msg("Week plan export failed")
		return
	}
	respondError(c, h.log, err)
}
