package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/service"
)

// OrderHandler handles meal order endpoints
type OrderHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(services *service.Services, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		services: services,
		log:      log.With().Str("handler", "order").Logger(),
	}
}

// Place handles PUT /v1/orders/:year/:week/:day where day 0 is Monday
func (h *OrderHandler) Place(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be a number"})
		return
	}

	var in models.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.services.Order.Place(c.Request.Context(), currentToken(c), year, week, day, &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Mine handles GET /v1/orders/:year/:week/mine
func (h *OrderHandler) Mine(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	orders, err := h.services.Order.Mine(c.Request.Context(), currentToken(c).UserID, year, week)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Week handles GET /v1/orders/:year/:week
func (h *OrderHandler) Week(c *gin.Context) {
	year, week, ok := weekParams(c)
	if !ok {
		return
	}

	summary, err := h.services.Order.Week(c.Request.Context(), year, week, requestLang(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
