package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"twintrack/database"
	"twintrack/inventory"
	"twintrack/middleware"
	"twintrack/models"
	"twintrack/roster"
)

var errForbidden = errors.New("you are not allowed to do this")

var badRequestErrors = []error{
	errBadRequest,
	database.ErrInvalid,
	database.ErrWrongRole,
	inventory.ErrNameRequired,
	inventory.ErrInvalidQuantity,
	inventory.ErrRemainingOutOfRange,
	inventory.ErrReturnOutOfRange,
	models.ErrUnknownStatus,
	roster.ErrUnknownRole,
}

var conflictErrors = []error{
	database.ErrConflict,
	database.ErrConcurrentUpdate,
	inventory.ErrInsufficientStock,
	inventory.ErrConservation,
	models.ErrInvalidTransition,
	roster.ErrLeadTaken,
	roster.ErrAlreadyAssigned,
	roster.ErrLeadProtected,
	roster.ErrWorkerAlreadyAssigned,
	roster.ErrWorkerNotOnProject,
	roster.ErrWorkerSuspended,
	roster.ErrSupervisorSuspended,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, conflictErrors):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError maps err to a status and envelope. Internal errors are
// logged with the request id and replaced by a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.RequestID(r.Context()), r.Method, r.URL.Path, err)
		message = "internal server error"
	}
	if errors.Is(err, errBadRequest) {
		message = strings.TrimPrefix(message, errBadRequest.Error()+": ")
	}
	respond(w, status, nil, message)
}

// rejectionReason labels roster rejections for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, roster.ErrLeadTaken):
		return "lead_taken"
	case errors.Is(err, roster.ErrLeadProtected):
		return "lead_protected"
	case errors.Is(err, roster.ErrAlreadyAssigned), errors.Is(err, roster.ErrWorkerAlreadyAssigned), errors.Is(err, database.ErrConflict):
		return "duplicate"
	case errors.Is(err, roster.ErrWorkerNotOnProject):
		return "not_on_project"
	case errors.Is(err, roster.ErrWorkerSuspended), errors.Is(err, roster.ErrSupervisorSuspended):
		return "suspended"
	}
	return ""
}

// allocationResult labels allocation outcomes for metrics.
func allocationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient"
	case statusFor(err) < http.StatusInternalServerError:
		return "invalid"
	}
	return "error"
}
