package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/service"
)

const (
	tokenKey = "auth_token"
	langKey  = "lang"
)

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if tok := currentToken(c); tok != nil {
			event = event.Str("user_id", tok.UserID)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// localeMiddleware resolves the response language from ?lang= or
// Accept-Language, falling back to the catalog default
func localeMiddleware(catalog *locale.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(langKey, catalog.Match(c.Query("lang"), c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// requireAuth accepts a bearer token. Browsers cannot set headers on an
// EventSource, so the access_token query parameter is accepted as well.
func requireAuth(authSvc service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("access_token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tok, err := authSvc.Authenticate(c.Request.Context(), raw)
		if errors.Is(err, service.ErrUnauthenticated) {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}

		c.Set(tokenKey, tok)
		c.Next()
	}
}

// requireRole must run after requireAuth
func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := currentToken(c)
		if tok == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if tok.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentToken(c *gin.Context) *auth.Token {
	v, ok := c.Get(tokenKey)
	if !ok {
		return nil
	}
	tok, _ := v.(*auth.Token)
	return tok
}

func requestLang(c *gin.Context) language.Tag {
	if v, ok := c.Get(langKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.Und
}
