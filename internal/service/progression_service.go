package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrResultAlreadyReported = errors.New("a provisional result is already awaiting validation for this bracket match")

type ProgressionService struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	tournaments *store.TournamentStore
}

func NewProgressionService(db *sqlx.DB, matches *store.MatchStore, tournaments *store.TournamentStore) *ProgressionService {
	return &ProgressionService{db: db, matches: matches, tournaments: tournaments}
}

// RecordResult sets a bracket match's winner and scores directly and
// advances the winner. Administrative path; the player-reported path goes
// through ReportResult and match validation instead.
func (s *ProgressionService) RecordResult(ctx context.Context, actor *ladder.User, bracketMatchID, winnerID uuid.UUID, score1, score2 *int) (*tournament.BracketMatch, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.getBracketMatchTx(ctx, tx, bracketMatchID)
	if err != nil {
		return nil, err
	}
	if m.Status == tournament.BracketPlayed {
		return nil, ErrBracketMatchPlayed
	}
	if !m.HasPlayer(winnerID) {
		return nil, ErrWinnerNotInMatch
	}

	m.WinnerID = &winnerID
	m.Score1 = score1
	m.Score2 = score2
	m.Status = tournament.BracketPlayed

	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to update bracket match: %w", err)
	}
	if err := s.propagateTx(ctx, tx, m, &winnerID); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

// ReplacePlayer swaps one slot of a bracket match for another tournament
// participant, or clears it when newPlayerID is nil. No propagation happens;
// downstream corrections are the administrator's responsibility.
func (s *ProgressionService) ReplacePlayer(ctx context.Context, actor *ladder.User, bracketMatchID uuid.UUID, slot int, newPlayerID *uuid.UUID) (*tournament.BracketMatch, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if slot != 1 && slot != 2 {
		return nil, ErrInvalidSlot
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.getBracketMatchTx(ctx, tx, bracketMatchID)
	if err != nil {
		return nil, err
	}

	if newPlayerID != nil {
		if _, err := s.tournaments.GetParticipant(ctx, m.TournamentID, *newPlayerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrParticipantNotFound
			}
			return nil, fmt.Errorf("failed to check participant: %w", err)
		}
	}

	if slot == 1 {
		m.Player1ID = newPlayerID
	} else {
		m.Player2ID = newPlayerID
	}

	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to update bracket match: %w", err)
	}
	return m, tx.Commit()
}

// RemovePlayer clears a slot and turns the match into a bye for whoever is
// left, propagating that player forward like a normal win.
func (s *ProgressionService) RemovePlayer(ctx context.Context, actor *ladder.User, bracketMatchID uuid.UUID, slot int) (*tournament.BracketMatch, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if slot != 1 && slot != 2 {
		return nil, ErrInvalidSlot
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.getBracketMatchTx(ctx, tx, bracketMatchID)
	if err != nil {
		return nil, err
	}

	if slot == 1 {
		m.Player1ID = nil
		m.WinnerID = m.Player2ID
	} else {
		m.Player2ID = nil
		m.WinnerID = m.Player1ID
	}
	m.Status = tournament.BracketBye
	m.Score1 = nil
	m.Score2 = nil

	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to update bracket match: %w", err)
	}
	if err := s.propagateTx(ctx, tx, m, m.WinnerID); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

// Reset clears a bracket match's outcome and un-assigns its winner from the
// next round. Only the immediate next-round slot is cleared: if that match
// was already played and propagated further, the stale winner downstream is
// not corrected.
func (s *ProgressionService) Reset(ctx context.Context, actor *ladder.User, bracketMatchID uuid.UUID) (*tournament.BracketMatch, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.getBracketMatchTx(ctx, tx, bracketMatchID)
	if err != nil {
		return nil, err
	}

	m.WinnerID = nil
	m.Score1 = nil
	m.Score2 = nil
	m.Status = tournament.BracketPending
	m.ResultMatchID = nil

	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to update bracket match: %w", err)
	}
	if err := s.propagateTx(ctx, tx, m, nil); err != nil {
		return nil, err
	}
	return m, tx.Commit()
}

// ReportResult is the player path: the provisional score is stored on the
// bracket match and a pending ladder match is created for the opponent to
// validate. The bracket cell gets its winner only once that match validates.
func (s *ProgressionService) ReportResult(ctx context.Context, actor *ladder.User, bracketMatchID uuid.UUID, score1, score2 int) (*ladder.Match, error) {
	if score1 < 0 || score2 < 0 {
		return nil, ErrNegativeScore
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := s.getBracketMatchTx(ctx, tx, bracketMatchID)
	if err != nil {
		return nil, err
	}
	if !m.HasPlayer(actor.ID) {
		return nil, ErrNotBracketPlayer
	}
	if m.Player1ID == nil || m.Player2ID == nil {
		return nil, ErrBracketMatchIncomplete
	}
	if m.Status == tournament.BracketPlayed {
		return nil, ErrBracketMatchPlayed
	}
	if m.ResultMatchID != nil {
		return nil, ErrResultAlreadyReported
	}

	opponentID := *m.Player2ID
	reporterScore, opponentScore := score1, score2
	if actor.ID == *m.Player2ID {
		opponentID = *m.Player1ID
		reporterScore, opponentScore = score2, score1
	}

	match := &ladder.Match{
		ID:           uuid.New(),
		Player1ID:    actor.ID,
		Player2ID:    opponentID,
		Kind:         ladder.KindResult,
		Games:        ladder.Games{{P1: reporterScore, P2: opponentScore}},
		Status:       ladder.MatchPending,
		TournamentID: &m.TournamentID,
	}
	if err := s.matches.CreateMatchTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create provisional match: %w", err)
	}

	m.Score1 = &score1
	m.Score2 = &score2
	m.ResultMatchID = &match.ID
	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("failed to store provisional score: %w", err)
	}

	return match, tx.Commit()
}

// OnMatchValidatedTx resolves the bracket cell linked to a just-validated
// tournament match and propagates its winner. Runs inside the match
// validation transaction.
func (s *ProgressionService) OnMatchValidatedTx(ctx context.Context, tx *sqlx.Tx, match *ladder.Match) error {
	m, err := s.tournaments.GetBracketMatchByResultMatchTx(ctx, tx, match.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Tournament-tagged but not tied to a bracket cell.
			return nil
		}
		return fmt.Errorf("failed to find bracket match: %w", err)
	}

	m.WinnerID = match.WinnerID
	m.Status = tournament.BracketPlayed
	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return fmt.Errorf("failed to resolve bracket match: %w", err)
	}
	return s.propagateTx(ctx, tx, m, match.WinnerID)
}

// OnMatchRejectedTx clears the provisional result so the bracket match can
// be reported again.
func (s *ProgressionService) OnMatchRejectedTx(ctx context.Context, tx *sqlx.Tx, match *ladder.Match) error {
	m, err := s.tournaments.GetBracketMatchByResultMatchTx(ctx, tx, match.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to find bracket match: %w", err)
	}

	m.Score1 = nil
	m.Score2 = nil
	m.ResultMatchID = nil
	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, m); err != nil {
		return fmt.Errorf("failed to clear provisional result: %w", err)
	}
	return nil
}

// propagateTx writes the winner (or nil, for a reset) into the next round's
// slot: (round+1, position/2), player1 on even positions. It touches exactly
// one level; it never cascades into rounds beyond the next one.
func (s *ProgressionService) propagateTx(ctx context.Context, tx *sqlx.Tx, m *tournament.BracketMatch, winnerID *uuid.UUID) error {
	nextRound, nextPosition, isPlayer1 := m.NextSlot()

	next, err := s.tournaments.GetBracketMatchByPositionTx(ctx, tx, m.TournamentID, nextRound, nextPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Final round: nothing to feed into.
			return nil
		}
		return fmt.Errorf("failed to load next bracket match: %w", err)
	}

	if isPlayer1 {
		next.Player1ID = winnerID
	} else {
		next.Player2ID = winnerID
	}
	if err := s.tournaments.UpdateBracketMatchTx(ctx, tx, next); err != nil {
		return fmt.Errorf("failed to propagate winner: %w", err)
	}
	return nil
}

func (s *ProgressionService) GetBracketMatch(ctx context.Context, id uuid.UUID) (*tournament.BracketMatch, error) {
	m, err := s.tournaments.GetBracketMatch(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *ProgressionService) getBracketMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*tournament.BracketMatch, error) {
	m, err := s.tournaments.GetBracketMatchTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketMatchNotFound
		}
		return nil, fmt.Errorf("failed to load bracket match: %w", err)
	}
	return m, nil
}
