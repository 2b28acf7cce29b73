package models

import (
	"time"
)

// User represents an account. Clients are identified by Shortcode and have no
// Email; staff log in by Email and have no Shortcode.
type User struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	BirthYear    string    `json:"birth_year,omitempty" db:"birth_year"`
	Shortcode    string    `json:"shortcode,omitempty" db:"shortcode"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsClient reports whether the user logs in with a shortcode
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// UserInput is the admin form payload for create and update
type UserInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	BirthYear string `json:"birth_year"`
	Shortcode string `json:"shortcode"`
}

// CreatedUser is returned once after creation. InitialPassword is only set for
// clients, whose password is derived and has to be handed out at the front desk.
type CreatedUser struct {
	User
	InitialPassword string `json:"initial_password,omitempty"`
}
