package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/service"
)

// AuthHandler handles login, session and self service endpoints
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
	Destination string       `json:"destination"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user"`
	Destination   string       `json:"destination"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, tok, err := h.services.Auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:       tok.Raw,
		ExpiresAt:   tok.ExpiresAt,
		User:        user,
		Destination: auth.DestinationFor(user.Role),
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.services.Auth.Logout(c.Request.Context(), currentToken(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session handles GET /v1/session
func (h *AuthHandler) Session(c *gin.Context) {
	tok := currentToken(c)
	user, err := h.services.User.Get(c.Request.Context(), tok.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          user,
		Destination:   auth.DestinationFor(user.Role),
		ExpiresAt:     tok.ExpiresAt,
	})
}

// Events handles GET /v1/session/events. It streams "session" events carrying
// the authenticated state: true on connect, false on logout or expiry, after
// which the stream ends.
func (h *AuthHandler) Events(c *gin.Context) {
	tok := currentToken(c)
	states, err := h.services.Auth.Watch(c.Request.Context(), tok)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	// the stream outlives the server's write timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug().Err(err).Msg("Cannot clear write deadline")
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		authenticated, ok := <-states
		if !ok {
			return false
		}
		c.SSEvent("session", gin.H{"authenticated": authenticated})
		return authenticated
	})

	h.log.Debug().Str("session_id", tok.SessionID).Msg("Session stream closed")
}

// Destination handles GET /v1/destinations/:role
func (h *AuthHandler) Destination(c *gin.Context) {
	role := c.Param("role")
	c.JSON(http.StatusOK, gin.H{
		"role":        role,
		"destination": auth.Destination(role),
	})
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.services.User.Get(c.Request.Context(), currentToken(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /v1/me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.services.User.ChangePassword(c.Request.Context(), currentToken(c).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeEmail handles PUT /v1/me/email
func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.services.User.ChangeEmail(c.Request.Context(), currentToken(c).UserID, req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
