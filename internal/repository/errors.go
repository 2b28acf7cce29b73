package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrMalformedWeekPlan is returned when a stored plan does not have exactly seven days
	ErrMalformedWeekPlan = errors.New("malformed week plan")
)

const (
	pqUniqueViolation = "23505"
	// raised when a malformed id is compared against a uuid column
	pqInvalidTextRepresentation = "22P02"
)

// mapError translates driver errors into the package's sentinel errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqInvalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}
