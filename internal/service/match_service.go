package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PindaZ/pingpong-pro-sub000/internal/elo"
	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db          *sqlx.DB
	users       *store.UserStore
	matches     *store.MatchStore
	progression *ProgressionService
}

func NewMatchService(db *sqlx.DB, users *store.UserStore, matches *store.MatchStore, progression *ProgressionService) *MatchService {
	return &MatchService{db: db, users: users, matches: matches, progression: progression}
}

type CreateMatchInput struct {
	OpponentID   uuid.UUID
	Games        ladder.Games
	TournamentID *uuid.UUID
	AutoValidate bool
}

type RatingChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type EloChanges struct {
	Player1 RatingChange `json:"playerA"`
	Player2 RatingChange `json:"playerB"`
}

type ValidateResult struct {
	Status     ladder.MatchStatus `json:"status"`
	WinnerID   *uuid.UUID         `json:"winner,omitempty"`
	EloChanges *EloChanges        `json:"eloChanges,omitempty"`
}

type DeletionResult struct {
	Deleted         bool `json:"deleted"`
	PendingApproval bool `json:"pendingApproval"`
}

// Create reports a new match. The reporter always occupies the player1 slot
// and the opponent validates. AutoValidate is an administrative shortcut
// that validates and applies the rating change in the same transaction.
func (s *MatchService) Create(ctx context.Context, reporter *ladder.User, in CreateMatchInput) (*ladder.Match, error) {
	if len(in.Games) == 0 {
		return nil, ErrNoGames
	}
	if !in.Games.Valid() {
		return nil, ErrNegativeScore
	}
	if in.OpponentID == reporter.ID {
		return nil, ErrSelfOpponent
	}
	if in.AutoValidate && !reporter.IsAdmin() {
		return nil, ErrAdminOnly
	}

	if _, err := s.users.GetUser(ctx, in.OpponentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOpponentNotFound
		}
		return nil, fmt.Errorf("failed to look up opponent: %w", err)
	}

	match := &ladder.Match{
		ID:           uuid.New(),
		Player1ID:    reporter.ID,
		Player2ID:    in.OpponentID,
		Kind:         ladder.KindResult,
		Games:        in.Games,
		Status:       ladder.MatchPending,
		TournamentID: in.TournamentID,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if in.AutoValidate {
		winnerID := ladder.WinnerFromGames(match.Player1ID, match.Player2ID, match.Games)
		match.Status = ladder.MatchValidated
		match.WinnerID = &winnerID
	}

	if err := s.matches.CreateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	// Tournament matches never move ratings, autovalidated or not.
	if in.AutoValidate && match.TournamentID == nil {
		if _, err := s.applyRatingChangeTx(ctx, tx, match); err != nil {
			return nil, err
		}
	}

	return match, tx.Commit()
}

// CreateChallenge records a social invite: a match with no games yet. It
// becomes a reportable result once the creator edits scores in.
func (s *MatchService) CreateChallenge(ctx context.Context, reporter *ladder.User, opponentID uuid.UUID) (*ladder.Match, error) {
	if opponentID == reporter.ID {
		return nil, ErrSelfOpponent
	}
	if _, err := s.users.GetUser(ctx, opponentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOpponentNotFound
		}
		return nil, fmt.Errorf("failed to look up opponent: %w", err)
	}

	match := &ladder.Match{
		ID:        uuid.New(),
		Player1ID: reporter.ID,
		Player2ID: opponentID,
		Kind:      ladder.KindChallenge,
		Games:     ladder.Games{},
		Status:    ladder.MatchPending,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.matches.CreateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return match, tx.Commit()
}

func (s *MatchService) Get(ctx context.Context, id uuid.UUID) (*ladder.Match, error) {
	match, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *MatchService) ListForUser(ctx context.Context, userID uuid.UUID) ([]ladder.Match, error) {
	return s.matches.ListMatchesForUser(ctx, userID)
}

// Validate confirms or rejects a pending match. Only player2 (the opponent,
// who did not report the result) may call it. Confirming a non-tournament
// match applies the ELO update and writes both ranking logs atomically with
// the status change.
func (s *MatchService) Validate(ctx context.Context, matchID uuid.UUID, actor *ladder.User, action string) (*ValidateResult, error) {
	if action != "confirm" && action != "reject" {
		return nil, fmt.Errorf("%w: action must be confirm or reject", ErrValidationFailed)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.getMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(actor.ID) {
		return nil, ErrNotParticipant
	}
	if actor.ID != match.Player2ID {
		return nil, ErrNotValidator
	}
	// Status re-checked inside the transaction so two concurrent confirms
	// cannot both apply the rating change.
	if match.Status != ladder.MatchPending {
		return nil, ErrMatchNotPending
	}

	if action == "reject" {
		match.Status = ladder.MatchRejected
		if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to reject match: %w", err)
		}
		if match.TournamentID != nil {
			if err := s.progression.OnMatchRejectedTx(ctx, tx, match); err != nil {
				return nil, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ValidateResult{Status: ladder.MatchRejected}, nil
	}

	// A challenge with no reported games yet cannot be confirmed into a win.
	if len(match.Games) == 0 {
		return nil, ErrNoGames
	}

	// Recompute the winner from the stored games rather than trusting
	// anything computed at creation time.
	winnerID := ladder.WinnerFromGames(match.Player1ID, match.Player2ID, match.Games)
	match.Status = ladder.MatchValidated
	match.WinnerID = &winnerID

	result := &ValidateResult{Status: ladder.MatchValidated, WinnerID: &winnerID}

	if match.TournamentID != nil {
		// Tournament matches carry no rating effect; the bracket cell is
		// resolved and the winner propagated instead.
		if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to validate match: %w", err)
		}
		if err := s.progression.OnMatchValidatedTx(ctx, tx, match); err != nil {
			return nil, err
		}
		return result, tx.Commit()
	}

	changes, err := s.applyRatingChangeTx(ctx, tx, match)
	if err != nil {
		return nil, err
	}
	result.EloChanges = changes

	if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to validate match: %w", err)
	}
	return result, tx.Commit()
}

// Update edits a match's games and optionally its opponent. Pending and
// rejected matches are edited in place by their creator; a validated match
// instead receives an adjustment request awaiting the opponent's approval.
func (s *MatchService) Update(ctx context.Context, matchID uuid.UUID, actor *ladder.User, games ladder.Games, opponentID *uuid.UUID) (*ladder.Match, error) {
	if len(games) == 0 {
		return nil, ErrNoGames
	}
	if !games.Valid() {
		return nil, ErrNegativeScore
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.getMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(actor.ID) {
		return nil, ErrNotParticipant
	}

	if opponentID != nil {
		if *opponentID == match.Player1ID {
			return nil, ErrSelfOpponent
		}
		if _, err := s.users.GetUserTx(ctx, tx, *opponentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrOpponentNotFound
			}
			return nil, fmt.Errorf("failed to look up opponent: %w", err)
		}
	}

	switch match.Status {
	case ladder.MatchPending, ladder.MatchRejected:
		// Player1 is the creator and the only one who may edit directly.
		if actor.ID != match.Player1ID {
			return nil, ErrNotCreator
		}
		match.Games = games
		match.Kind = ladder.KindResult
		if opponentID != nil {
			match.Player2ID = *opponentID
		}
		match.Status = ladder.MatchPending
		if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to update match: %w", err)
		}
		return match, tx.Commit()

	case ladder.MatchValidated:
		if match.DeletionRequestedBy != nil {
			return nil, ErrChangeRequestPending
		}
		if _, err := s.matches.GetAdjustmentTx(ctx, tx, matchID); err == nil {
			return nil, ErrChangeRequestPending
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check adjustment request: %w", err)
		}

		req := &ladder.AdjustmentRequest{
			MatchID:            matchID,
			RequestedBy:        actor.ID,
			ProposedGames:      games,
			ProposedOpponentID: opponentID,
		}
		if err := s.matches.CreateAdjustmentTx(ctx, tx, req); err != nil {
			return nil, fmt.Errorf("failed to create adjustment request: %w", err)
		}
		return match, tx.Commit()

	default:
		return nil, ErrMatchNotValidated
	}
}

// ResolveAdjustment approves or rejects a pending adjustment request.
// Approval reverts the prior rating change, swaps in the proposed games and
// opponent, and sends the match back through validation.
func (s *MatchService) ResolveAdjustment(ctx context.Context, matchID uuid.UUID, actor *ladder.User, action string) (*ladder.Match, error) {
	if action != "approve" && action != "reject" {
		return nil, fmt.Errorf("%w: action must be approve or reject", ErrValidationFailed)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.getMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(actor.ID) {
		return nil, ErrNotParticipant
	}

	req, err := s.matches.GetAdjustmentTx(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAdjustmentPending
		}
		return nil, fmt.Errorf("failed to load adjustment request: %w", err)
	}
	if actor.ID == req.RequestedBy {
		return nil, ErrSelfApprove
	}

	if action == "reject" {
		if err := s.matches.DeleteAdjustmentTx(ctx, tx, matchID); err != nil {
			return nil, fmt.Errorf("failed to clear adjustment request: %w", err)
		}
		return match, tx.Commit()
	}

	if err := s.revertRatingsTx(ctx, tx, matchID); err != nil {
		return nil, err
	}

	match.Games = req.ProposedGames
	if req.ProposedOpponentID != nil {
		// The proposed opponent always replaces the player2 slot; player1
		// stays the anchor of the match.
		match.Player2ID = *req.ProposedOpponentID
	}
	match.Status = ladder.MatchPending
	match.WinnerID = nil
	match.DeletionRequestedBy = nil

	if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to apply adjustment: %w", err)
	}
	if err := s.matches.DeleteAdjustmentTx(ctx, tx, matchID); err != nil {
		return nil, fmt.Errorf("failed to clear adjustment request: %w", err)
	}
	return match, tx.Commit()
}

// RequestDeletion deletes a pending or rejected match outright. For a
// validated match the first participant's call records the request and the
// other participant's call approves it, reverting the rating change before
// the match is removed.
func (s *MatchService) RequestDeletion(ctx context.Context, matchID uuid.UUID, actor *ladder.User) (*DeletionResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.getMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(actor.ID) {
		return nil, ErrNotParticipant
	}

	if match.Status != ladder.MatchValidated {
		if err := s.matches.DeleteMatchTx(ctx, tx, matchID); err != nil {
			return nil, fmt.Errorf("failed to delete match: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &DeletionResult{Deleted: true}, nil
	}

	if _, err := s.matches.GetAdjustmentTx(ctx, tx, matchID); err == nil {
		return nil, ErrChangeRequestPending
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check adjustment request: %w", err)
	}

	switch {
	case match.DeletionRequestedBy == nil:
		id := actor.ID
		match.DeletionRequestedBy = &id
		if err := s.matches.UpdateMatchTx(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to record deletion request: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &DeletionResult{PendingApproval: true}, nil

	case *match.DeletionRequestedBy == actor.ID:
		return nil, ErrDeletionAlreadyAsked

	default:
		// The other participant agreeing counts as approval.
		if err := s.revertRatingsTx(ctx, tx, matchID); err != nil {
			return nil, err
		}
		if err := s.matches.DeleteMatchTx(ctx, tx, matchID); err != nil {
			return nil, fmt.Errorf("failed to delete match: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &DeletionResult{Deleted: true}, nil
	}
}

func (s *MatchService) getMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*ladder.Match, error) {
	match, err := s.matches.GetMatchTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return match, nil
}

// applyRatingChangeTx updates both players' ratings for the match winner and
// writes one ranking log per player, all within the caller's transaction.
func (s *MatchService) applyRatingChangeTx(ctx context.Context, tx *sqlx.Tx, match *ladder.Match) (*EloChanges, error) {
	player1, err := s.users.GetUserTx(ctx, tx, match.Player1ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player1: %w", err)
	}
	player2, err := s.users.GetUserTx(ctx, tx, match.Player2ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player2: %w", err)
	}

	p1Won := match.WinnerID != nil && *match.WinnerID == player1.ID
	new1, new2, _ := elo.ComputeUpdate(player1.Rating, player2.Rating, p1Won, elo.DefaultK)

	if err := s.users.UpdateRatingTx(ctx, tx, player1.ID, new1); err != nil {
		return nil, fmt.Errorf("failed to update player1 rating: %w", err)
	}
	if err := s.users.UpdateRatingTx(ctx, tx, player2.ID, new2); err != nil {
		return nil, fmt.Errorf("failed to update player2 rating: %w", err)
	}

	logs := []ladder.RankingLog{
		{ID: uuid.New(), UserID: player1.ID, MatchID: match.ID, RatingBefore: player1.Rating, RatingAfter: new1, Delta: new1 - player1.Rating, OrgID: player1.OrgID},
		{ID: uuid.New(), UserID: player2.ID, MatchID: match.ID, RatingBefore: player2.Rating, RatingAfter: new2, Delta: new2 - player2.Rating, OrgID: player2.OrgID},
	}
	for i := range logs {
		if err := s.matches.InsertRankingLogTx(ctx, tx, &logs[i]); err != nil {
			return nil, fmt.Errorf("failed to insert ranking log: %w", err)
		}
	}

	return &EloChanges{
		Player1: RatingChange{From: player1.Rating, To: new1},
		Player2: RatingChange{From: player2.Rating, To: new2},
	}, nil
}

// revertRatingsTx resets each player to the rating_before recorded for this
// match and removes the logs. If a later match already moved a rating, the
// reset drifts it; that limitation is accepted rather than reconstructing
// history.
func (s *MatchService) revertRatingsTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) error {
	logs, err := s.matches.ListRankingLogsByMatchTx(ctx, tx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load ranking logs: %w", err)
	}
	for _, log := range logs {
		if err := s.users.UpdateRatingTx(ctx, tx, log.UserID, log.RatingBefore); err != nil {
			return fmt.Errorf("failed to revert rating: %w", err)
		}
	}
	if err := s.matches.DeleteRankingLogsByMatchTx(ctx, tx, matchID); err != nil {
		return fmt.Errorf("failed to delete ranking logs: %w", err)
	}
	return nil
}
