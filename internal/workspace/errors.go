package workspace

import (
	"errors"
	"fmt"
	"net/http"

	socialdomain "miinplanner-backend/internal/social/domain"
	taskdomain "miinplanner-backend/internal/task/domain"
	spacedomain "miinplanner-backend/internal/taskspace/domain"
)

var (
	ErrNotAuthenticated  = errors.New("You must be logged in to do that.")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStatusInUse       = errors.New("status is in use")
	ErrSearchUnavailable = errors.New("semantic search is not configured")
)

// UserError carries the message shown to the user next to its cause
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

func userError(message string, err error) error {
	return &UserError{Message: message, Err: err}
}

// invalid reports a rejected input; the cause is the user message
func invalid(err error) error {
	return &UserError{Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrInvalidInput, err)}
}

// Message returns the user-facing text for err
func Message(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}

// HTTPStatus maps a workspace error to a response status code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrStatusInUse):
		return http.StatusConflict
	case errors.Is(err, ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, taskdomain.ErrTaskNotFound),
		errors.Is(err, spacedomain.ErrSpaceNotFound),
		errors.Is(err, socialdomain.ErrPostNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
