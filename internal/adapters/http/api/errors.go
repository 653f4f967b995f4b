package api

import (
	"errors"
	"net/http"

	repository "github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	service "github.com/BakulBd/GreenGuardian-sub000/internal/app"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/session"
)

// ErrBadRequest marks request bodies that fail validation.
var ErrBadRequest = errors.New("bad request")

// statusFor maps service errors onto HTTP status codes and stable
// machine-readable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id"
	case errors.Is(err, repository.ErrSessionFinalized):
		return http.StatusConflict, "session_finalized"
	case errors.Is(err, session.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight"
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError renders err with the status and code statusFor
// assigns to it.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
