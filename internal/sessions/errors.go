package sessions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/proctor/internal/detectors"
	"github.com/JaimeStill/proctor/internal/proctor"
)

// Domain errors for session operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrDuplicate      = errors.New("session already exists")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotLive        = errors.New("session is not live on this instance")
	ErrReportNotReady = errors.New("report is not available until the session completes")
)

// MapHTTPStatus maps session and proctoring errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotLive):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound),
		errors.Is(err, proctor.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrReportNotReady),
		errors.Is(err, proctor.ErrNotActive),
		errors.Is(err, proctor.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, proctor.ErrCameraDenied):
		return http.StatusForbidden
	case errors.Is(err, proctor.ErrUnanswered):
		return http.StatusUnprocessableEntity
	case errors.Is(err, detectors.ErrFrameTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, proctor.ErrUnknownQuestion),
		errors.Is(err, proctor.ErrNoQuestions),
		errors.Is(err, proctor.ErrInvalidBudget),
		errors.Is(err, detectors.ErrEmptyFrame):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
