package backend

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

var (
	ErrBackendUnavailable = errors.New("backend service unavailable")
	ErrInvalidResponse    = errors.New("invalid response from backend")
)

// StatusError is a non-2xx answer. It unwraps to domain.ErrTransientNetwork.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrTransientNetwork
}

// IsClientError reports a 4xx answer, which retrying will not fix.
func (e *StatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func isClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
