package service

import "errors"

// Shared errors used across services and the HTTP mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and bad input
	ErrValidationFailed = errors.New("validation failed")
	ErrNoGames          = errors.New("at least one game score is required")
	ErrNegativeScore    = errors.New("game scores must be non-negative")
	ErrSelfOpponent     = errors.New("cannot report a match against yourself")
	ErrInvalidSlot      = errors.New("slot must be 1 or 2")
	ErrWinnerNotInMatch = errors.New("winner must be one of the match players")

	// Authorization
	ErrForbidden        = errors.New("operation not allowed for the current user")
	ErrNotParticipant   = errors.New("only a participant of this match can perform this action")
	ErrNotValidator     = errors.New("only the opponent can validate this match")
	ErrNotCreator       = errors.New("only the player who reported the match can edit it directly")
	ErrSelfApprove      = errors.New("the requester cannot approve their own adjustment")
	ErrAdminOnly        = errors.New("administrator privileges required")
	ErrNotBracketPlayer = errors.New("only a player of this bracket match can report its result")

	// State-machine violations
	ErrMatchNotPending        = errors.New("match is not awaiting validation")
	ErrMatchNotValidated      = errors.New("match is not validated")
	ErrChangeRequestPending   = errors.New("an adjustment or deletion request is already pending for this match")
	ErrNoAdjustmentPending    = errors.New("no adjustment request is pending for this match")
	ErrDeletionAlreadyAsked   = errors.New("deletion already requested, awaiting the opponent's approval")
	ErrBracketMatchPlayed     = errors.New("bracket match has already been played")
	ErrBracketMatchIncomplete = errors.New("bracket match does not have both players assigned yet")

	// Entity lookups
	ErrUserNotFound         = errors.New("user not found")
	ErrOpponentNotFound     = errors.New("opponent not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrBracketMatchNotFound = errors.New("bracket match not found")
	ErrParticipantNotFound  = errors.New("participant registration not found")

	// Tournament workflow
	ErrTournamentFull            = errors.New("tournament registration is full")
	ErrAlreadyRegistered         = errors.New("already registered for this tournament")
	ErrBracketAlreadyGenerated   = errors.New("bracket has already been generated for this tournament")
	ErrInsufficientParticipants  = errors.New("at least two participants are required to generate a bracket")
	ErrTournamentInvalidCapacity = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidDates    = errors.New("tournament end date must be after start date")
	ErrEmailConflict             = errors.New("email address is already in use")
)
