package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyMessage       = fmt.Errorf("message body is empty")
	ErrUserAlreadyExists  = fmt.Errorf("email is already registered")
	ErrUsernameTaken      = fmt.Errorf("username is already taken")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrValidation         = fmt.Errorf("invalid registration payload")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnauthorized       = fmt.Errorf("authentication required")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes at
// the transport edge. Unknown errors are treated as server faults.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
