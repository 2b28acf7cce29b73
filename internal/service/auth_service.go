package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/config"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
)

// authService is the only writer of the authentication Signal
type authService struct {
	users  repository.UserRepository
	tokens repository.TokenStore
	issuer *auth.Issuer
	signal *auth.Signal
	cfg    config.AuthConfig
	log    zerolog.Logger
}

func newAuthService(users repository.UserRepository, tokens repository.TokenStore, issuer *auth.Issuer, signal *auth.Signal, cfg config.AuthConfig, log zerolog.Logger) *authService {
	return &authService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		signal: signal,
		cfg:    cfg,
		log:    log.With().Str("service", "auth").Logger(),
	}
}

// Login resolves identifier as an email when it contains "@" and as a client
// shortcode otherwise. Unknown identifiers and wrong secrets are
// indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, identifier, secret string) (*models.User, *auth.Token, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return nil, nil, ErrInvalidCredentials
	}

	byEmail := strings.Contains(identifier, "@")
	var (
		user *models.User
		err  error
	)
	if byEmail {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByShortcode(ctx, identifier)
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info().Bool("by_email", byEmail).Msg("Login failed: unknown identifier")
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if byEmail == user.IsClient() || !auth.VerifyPassword(user.PasswordHash, secret) {
		s.log.Info().Str("user_id", user.ID).Msg("Login failed: wrong secret")
		return nil, nil, ErrInvalidCredentials
	}

	tok, err := s.issuer.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.signal.Publish(auth.SessionEvent{SessionID: tok.SessionID, UserID: user.ID, Authenticated: true})
	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Str("session_id", tok.SessionID).
		Msg("User logged in")

	return user, tok, nil
}

// Logout revokes the session until its token would have expired
func (s *authService) Logout(ctx context.Context, tok *auth.Token) error {
	if err := s.tokens.Revoke(ctx, tok.SessionID, tok.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.signal.Publish(auth.SessionEvent{SessionID: tok.SessionID, UserID: tok.UserID, Authenticated: false})
	s.log.Info().Str("user_id", tok.UserID).Str("session_id", tok.SessionID).Msg("User logged out")
	return nil
}

// Authenticate verifies a bearer token, checks it was not revoked and that its
// user still exists. The returned token carries the user's current role.
func (s *authService) Authenticate(ctx context.Context, raw string) (*auth.Token, error) {
	tok, err := s.issuer.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	revoked, err := s.tokens.IsRevoked(ctx, tok.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", ErrUnauthenticated)
	}

	user, err := s.users.GetByID(ctx, tok.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	tok.Role = user.Role

	return tok, nil
}

// Watch streams the authenticated state of the token's session. A logout that
// lands between Authenticate and Watch is caught by the revocation check after
// subscribing.
func (s *authService) Watch(ctx context.Context, tok *auth.Token) (<-chan bool, error) {
	states := s.signal.Watch(ctx, tok.SessionID, tok.UserID, tok.ExpiresAt)

	revoked, err := s.tokens.IsRevoked(ctx, tok.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		out := make(chan bool, 1)
		out <- false
		close(out)
		return out, nil
	}
	return states, nil
}

// SeedAdmin creates the configured admin account when no user exists yet
func (s *authService) SeedAdmin(ctx context.Context) (bool, error) {
	if s.cfg.AdminEmail == "" {
		return false, nil
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		s.log.Debug().Int("users", count).Msg("Users exist, admin seeding skipped")
		return false, nil
	}

	hash, err := auth.HashPassword(s.cfg.AdminPassword, s.cfg.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		ID:           uuid.NewString(),
		FirstName:    "Admin",
		Email:        strings.ToLower(s.cfg.AdminEmail),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	s.log.Info().Str("email", admin.Email).Msg("Admin account created")
	return true, nil
}
