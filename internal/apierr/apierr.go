package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain sentinels. Services return these (optionally wrapped); the HTTP
// layer maps them to a status and stable code with FromError.
var (
	ErrInvalidObservation = errors.New("invalid observation")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrStaleState         = errors.New("stale state")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotFound           = errors.New("not found")
	ErrPassInProgress     = errors.New("pass already in progress")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrInvalidObservation):
		return New(http.StatusUnprocessableEntity, "invalid_observation", err)
	case errors.Is(err, ErrInsufficientData):
		return New(http.StatusUnprocessableEntity, "insufficient_data", err)
	case errors.Is(err, ErrStaleState):
		return New(http.StatusConflict, "stale_state", err)
	case errors.Is(err, ErrInvalidTransition):
		return New(http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrPassInProgress):
		return New(http.StatusConflict, "pass_in_progress", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
