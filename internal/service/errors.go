package service

import "errors"

var (
	// ErrInvalidCredentials is returned when no user matches identifier and secret
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for missing, expired or revoked tokens
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSelfDeletion is returned when an admin tries to delete their own account
	ErrSelfDeletion = errors.New("users cannot delete themselves")
	// ErrForbidden is returned when the role of the caller does not allow the action
	ErrForbidden = errors.New("forbidden")
	// ErrOrderClosed is returned for orders on days that already passed
	ErrOrderClosed = errors.New("ordering is closed for this day")
	// ErrPlanMissing is returned when ordering for a week without a plan
	ErrPlanMissing = errors.New("no week plan for this week")
	// ErrUnsupportedFormat is returned for unknown export formats
	ErrUnsupportedFormat = errors.New("unsupported format")
)
