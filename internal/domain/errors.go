package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies
// produced by WithError/WithMessage still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	// Media acquisition
	ErrPermissionDenied = &AppError{
		Code:       "PERMISSION_DENIED",
		Message:    "Camera access denied",
		StatusCode: 403,
	}

	ErrDeviceUnavailable = &AppError{
		Code:       "DEVICE_UNAVAILABLE",
		Message:    "Camera device unavailable",
		StatusCode: 503,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many control requests",
		StatusCode: 429,
	}

	ErrSessionBusy = &AppError{
		Code:       "SESSION_BUSY",
		Message:    "Camera session is in use by another flow",
		StatusCode: 409,
	}

	// Backend transport
	ErrTransientNetwork = &AppError{
		Code:       "TRANSIENT_NETWORK_ERROR",
		Message:    "Backend request failed",
		StatusCode: 502,
	}

	ErrPayloadParse = &AppError{
		Code:       "PAYLOAD_PARSE_ERROR",
		Message:    "Malformed backend response",
		StatusCode: 502,
	}

	// Enrollment
	ErrPrecondition = &AppError{
		Code:       "PRECONDITION_FAILED",
		Message:    "Action not allowed in the current state",
		StatusCode: 412,
	}

	ErrPartialUpload = &AppError{
		Code:       "PARTIAL_UPLOAD_FAILURE",
		Message:    "Sample upload aborted",
		StatusCode: 502,
	}
)
