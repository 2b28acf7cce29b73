package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/verpflegung/meal-api/internal/database"
	"github.com/verpflegung/meal-api/internal/models"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, birth_year, shortcode, created_at, updated_at`

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
		&user.Role, &user.BirthYear, &user.Shortcode, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.Role, user.BirthYear, user.Shortcode, user.CreatedAt, user.UpdatedAt,
	)
	return mapError(err)
}

// Update overwrites every mutable field of a user
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, email = $4, password_hash = $5,
			role = $6, birth_year = $7, shortcode = $8, updated_at = $9
		WHERE id = $1
	`
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.Role, user.BirthYear, user.Shortcode, user.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(res)
}

// Delete removes a user and, through the foreign key, their orders
func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(res)
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	return user, mapError(err)
}

// GetByEmail retrieves a staff member by email, case-insensitively
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	return user, mapError(err)
}

// GetByShortcode retrieves a client by shortcode, case-insensitively
func (r *userRepo) GetByShortcode(ctx context.Context, shortcode string) (*models.User, error) {
	if shortcode == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(shortcode) = LOWER($1)`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, shortcode))
	return user, mapError(err)
}

// List returns all users ordered by last and first name
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.stream(ctx, `ORDER BY last_name, first_name`, func(u *models.User) error {
		users = append(users, u)
		return nil
	})
	return users, err
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// StreamAll streams all users for export (memory efficient)
func (r *userRepo) StreamAll(ctx context.Context, callback func(*models.User) error) error {
	return r.stream(ctx, `ORDER BY created_at`, callback)
}

func (r *userRepo) stream(ctx context.Context, order string, callback func(*models.User) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users `+order)
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return err
		}
		if err := callback(user); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
