package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/validation"
)

// userService is the concrete implementation of UserService
type userService struct {
	users      repository.UserRepository
	validator  *validation.Validator
	bcryptCost int
	signal     *auth.Signal
	log        zerolog.Logger
}

func newUserService(users repository.UserRepository, v *validation.Validator, bcryptCost int, signal *auth.Signal, log zerolog.Logger) *userService {
	return &userService{
		users:      users,
		validator:  v,
		bcryptCost: bcryptCost,
		signal:     signal,
		log:        log.With().Str("service", "user").Logger(),
	}
}

// Create adds an account. A client's password is derived from shortcode and
// birth year and returned once as InitialPassword.
func (s *userService) Create(ctx context.Context, in *models.UserInput) (*models.CreatedUser, error) {
	if err := s.validator.ValidateUser(in, true).Err(); err != nil {
		return nil, err
	}
	role, _ := models.ParseRole(in.Role)

	user := &models.User{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
	}

	plain := in.Password
	if role == models.RoleClient {
		user.Shortcode = in.Shortcode
		user.BirthYear = in.BirthYear
		plain = auth.DerivePassword(in.Shortcode, in.BirthYear)
	} else {
		user.Email = normalizeEmail(in.Email)
	}

	hash, err := auth.HashPassword(plain, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("User created")

	created := &models.CreatedUser{User: *user}
	if role == models.RoleClient {
		created.InitialPassword = plain
	}
	return created, nil
}

// Update overwrites an account. A client's password is derived again when it
// becomes a client or its shortcode or birth year change.
func (s *userService) Update(ctx context.Context, id string, in *models.UserInput) (*models.CreatedUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasClient := user.IsClient()
	oldRole := user.Role
	role, ok := models.ParseRole(in.Role)
	if ok && wasClient && role != models.RoleClient && in.Password == "" {
		return nil, validation.Errors{{Field: "password", Message: "password is required when a client becomes staff"}}
	}
	if err := s.validator.ValidateUser(in, false).Err(); err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Role = role

	var derived string
	plain := in.Password
	if role == models.RoleClient {
		if !wasClient || user.Shortcode != in.Shortcode || user.BirthYear != in.BirthYear {
			derived = auth.DerivePassword(in.Shortcode, in.BirthYear)
			plain = derived
		} else {
			plain = ""
		}
		user.Email = ""
		user.Shortcode = in.Shortcode
		user.BirthYear = in.BirthYear
	} else {
		user.Email = normalizeEmail(in.Email)
		user.Shortcode = ""
		user.BirthYear = ""
	}

	if plain != "" {
		hash, err := auth.HashPassword(plain, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(role)).
		Bool("password_changed", plain != "").
		Msg("User updated")

	if role != oldRole {
		s.signOut(user.ID)
	}

	return &models.CreatedUser{User: *user, InitialPassword: derived}, nil
}

// Delete removes an account. Nobody can delete their own account.
func (s *userService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDeletion
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actorID).Msg("User deleted")
	s.signOut(id)
	return nil
}

// signOut tells every open session of the user that it ended. Tokens of a
// deleted user stop authenticating; tokens of a user with a new role carry
// the new role from the next request on.
func (s *userService) signOut(userID string) {
	if s.signal == nil {
		return
	}
	s.signal.Publish(auth.SessionEvent{UserID: userID, Authenticated: false})
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *userService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := s.validator.ValidatePassword(next).Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("Password changed")
	return nil
}

// ChangeEmail sets a new login email. Clients have no email.
func (s *userService) ChangeEmail(ctx context.Context, userID, email string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsClient() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateEmail(email).Err(); err != nil {
		return nil, err
	}

	user.Email = normalizeEmail(email)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Msg("Email changed")
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
