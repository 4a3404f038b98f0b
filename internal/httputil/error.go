package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/PindaZ/pingpong-pro-sub000/internal/service"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeError(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, msg, http.StatusNotFound)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, msg, http.StatusUnauthorized)
}

func Forbidden(w http.ResponseWriter, msg string) {
	slog.Warn("forbidden", "message", msg)
	writeError(w, msg, http.StatusForbidden)
}

func Conflict(w http.ResponseWriter, msg string) {
	slog.Warn("conflict", "message", msg)
	writeError(w, msg, http.StatusConflict)
}

// ServiceError maps a service-layer error onto the HTTP taxonomy: missing
// relationships are 403, unknown entities 404, bad payloads 400, state
// machine violations 409, anything unrecognized 500.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case isAny(err,
		service.ErrForbidden, service.ErrNotParticipant, service.ErrNotValidator,
		service.ErrNotCreator, service.ErrSelfApprove, service.ErrAdminOnly,
		service.ErrNotBracketPlayer):
		Forbidden(w, err.Error())

	case isAny(err,
		service.ErrNotFound, service.ErrUserNotFound, service.ErrOpponentNotFound,
		service.ErrMatchNotFound, service.ErrTournamentNotFound,
		service.ErrBracketMatchNotFound, service.ErrParticipantNotFound):
		NotFound(w, err.Error(), nil)

	case isAny(err,
		service.ErrValidationFailed, service.ErrNoGames, service.ErrNegativeScore,
		service.ErrSelfOpponent, service.ErrInvalidSlot, service.ErrWinnerNotInMatch,
		service.ErrTournamentInvalidCapacity, service.ErrTournamentInvalidDates):
		BadRequest(w, err.Error(), nil)

	case isAny(err,
		service.ErrMatchNotPending, service.ErrMatchNotValidated,
		service.ErrChangeRequestPending, service.ErrNoAdjustmentPending,
		service.ErrDeletionAlreadyAsked, service.ErrBracketMatchPlayed,
		service.ErrBracketMatchIncomplete, service.ErrResultAlreadyReported,
		service.ErrBracketAlreadyGenerated, service.ErrInsufficientParticipants,
		service.ErrTournamentFull, service.ErrAlreadyRegistered,
		service.ErrEmailConflict):
		Conflict(w, err.Error())

	default:
		InternalServerError(w, "Unexpected error", err)
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
