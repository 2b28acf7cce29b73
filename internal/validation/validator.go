package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/verpflegung/meal-api/internal/models"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	shortcodeRegex = regexp.MustCompile(`^[A-Za-z0-9]{2,16}$`)
	birthYearRegex = regexp.MustCompile(`^[0-9]{2,4}$`)
)

const (
	// MinPasswordLength applies to passwords chosen by staff
	MinPasswordLength = 6
	maxNameLength     = 100
	maxMenuNameLength = 200
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of field errors returned as one error value
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Field+": "+ve.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil for an empty list so callers can return it directly
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator provides validation methods
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUser validates the admin form for a user. Clients need a shortcode
// and birth year and must not carry an email; staff need an email and must not
// carry a shortcode. A password is only required when creating staff.
func (v *Validator) ValidateUser(in *models.UserInput, creating bool) Errors {
	var errs Errors

	if strings.TrimSpace(in.FirstName) == "" {
		errs = append(errs, ValidationError{Field: "first_name", Message: "first_name is required"})
	} else if utf8.RuneCountInString(in.FirstName) > maxNameLength {
		errs = append(errs, ValidationError{Field: "first_name", Message: fmt.Sprintf("first_name exceeds %d characters", maxNameLength)})
	}
	if utf8.RuneCountInString(in.LastName) > maxNameLength {
		errs = append(errs, ValidationError{Field: "last_name", Message: fmt.Sprintf("last_name exceeds %d characters", maxNameLength)})
	}

	if in.Role == "" {
		errs = append(errs, ValidationError{Field: "role", Message: "role is required"})
		return errs
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		errs = append(errs, ValidationError{
			Field:   "role",
			Message: "invalid role, must be one of: admin, kitchen_chef, caretaker, service_staff, client",
			Value:   in.Role,
		})
		return errs
	}

	if role == models.RoleClient {
		if in.Shortcode == "" {
			errs = append(errs, ValidationError{Field: "shortcode", Message: "shortcode is required for clients"})
		} else if !shortcodeRegex.MatchString(in.Shortcode) {
			errs = append(errs, ValidationError{Field: "shortcode", Message: "shortcode must be 2-16 letters or digits", Value: in.Shortcode})
		}
		if in.BirthYear == "" {
			errs = append(errs, ValidationError{Field: "birth_year", Message: "birth_year is required for clients"})
		} else if !birthYearRegex.MatchString(in.BirthYear) {
			errs = append(errs, ValidationError{Field: "birth_year", Message: "birth_year must be 2-4 digits", Value: in.BirthYear})
		}
		if in.Email != "" {
			errs = append(errs, ValidationError{Field: "email", Message: "clients have no email", Value: in.Email})
		}
		return errs
	}

	if in.Email == "" {
		errs = append(errs, ValidationError{Field: "email", Message: "email is required"})
	} else if !emailRegex.MatchString(in.Email) {
		errs = append(errs, ValidationError{Field: "email", Message: "invalid email format", Value: in.Email})
	}
	if in.Shortcode != "" {
		errs = append(errs, ValidationError{Field: "shortcode", Message: "only clients have a shortcode", Value: in.Shortcode})
	}
	if creating || in.Password != "" {
		errs = append(errs, v.ValidatePassword(in.Password)...)
	}

	return errs
}

// ValidateEmail checks a single email address
func (v *Validator) ValidateEmail(email string) Errors {
	if email == "" {
		return Errors{{Field: "email", Message: "email is required"}}
	}
	if !emailRegex.MatchString(email) {
		return Errors{{Field: "email", Message: "invalid email format", Value: email}}
	}
	return nil
}

// ValidatePassword checks a password chosen by a user
func (v *Validator) ValidatePassword(password string) Errors {
	if password == "" {
		return Errors{{Field: "password", Message: "password is required"}}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Errors{{Field: "password", Message: fmt.Sprintf("password must have at least %d characters", MinPasswordLength)}}
	}
	return nil
}

// ValidateWeekPlan checks a save request. A plan always has exactly seven days.
func (v *Validator) ValidateWeekPlan(in *models.WeekPlanInput) Errors {
	var errs Errors

	if len(in.Days) != models.DaysPerWeek {
		errs = append(errs, ValidationError{
			Field:   "days",
			Message: fmt.Sprintf("a week plan has exactly %d days", models.DaysPerWeek),
			Value:   len(in.Days),
		})
		return errs
	}

	for i, day := range in.Days {
		errs = append(errs, validateMenu(fmt.Sprintf("days[%d].bv_menu", i), day.BVMenu)...)
		errs = append(errs, validateMenu(fmt.Sprintf("days[%d].meatless_menu", i), day.MeatlessMenu)...)
		errs = append(errs, validateMenu(fmt.Sprintf("days[%d].dinner", i), day.Dinner)...)
		if day.Dessert != nil {
			errs = append(errs, validateMenu(fmt.Sprintf("days[%d].dessert", i), *day.Dessert)...)
		}
	}

	return errs
}

func validateMenu(field string, m models.Menu) Errors {
	var errs Errors
	if utf8.RuneCountInString(m.Name) > maxMenuNameLength {
		errs = append(errs, ValidationError{Field: field + ".name", Message: fmt.Sprintf("name exceeds %d characters", maxMenuNameLength)})
	}
	if m.Price < 0 {
		errs = append(errs, ValidationError{Field: field + ".price", Message: "price must not be negative", Value: m.Price})
	}
	if m.Amount < 0 {
		errs = append(errs, ValidationError{Field: field + ".amount", Message: "amount must not be negative", Value: m.Amount})
	}
	return errs
}

// ValidateOrder checks a client's selection for one day
func (v *Validator) ValidateOrder(in *models.OrderInput) Errors {
	if in.Menu == "" {
		return Errors{{Field: "menu", Message: "menu is required"}}
	}
	if !models.ValidChoices[in.Menu] {
		return Errors{{
			Field:   "menu",
			Message: "invalid menu, must be one of: none, bv, meatless",
			Value:   in.Menu,
		}}
	}
	return nil
}
