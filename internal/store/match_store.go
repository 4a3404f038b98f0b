package store

import (
	"context"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

const (
	getMatchQuery    = "SELECT * FROM matches WHERE id = ?"
	createMatchQuery = `
		INSERT INTO matches (id, player1_id, player2_id, kind, games, status, winner_id, tournament_id, deletion_requested_by)
		VALUES (:id, :player1_id, :player2_id, :kind, :games, :status, :winner_id, :tournament_id, :deletion_requested_by)
	`
	updateMatchQuery = `
		UPDATE matches SET
			player2_id = :player2_id,
			kind = :kind,
			games = :games,
			status = :status,
			winner_id = :winner_id,
			deletion_requested_by = :deletion_requested_by
		WHERE id = :id
	`
	listMatchesForUserQuery = `
		SELECT * FROM matches
		WHERE player1_id = ? OR player2_id = ?
		ORDER BY created_at DESC
	`
)

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*ladder.Match, error) {
	var match ladder.Match
	err := s.db.GetContext(ctx, &match, getMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*ladder.Match, error) {
	var match ladder.Match
	err := tx.GetContext(ctx, &match, getMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) CreateMatchTx(ctx context.Context, tx *sqlx.Tx, match *ladder.Match) error {
	_, err := tx.NamedExecContext(ctx, createMatchQuery, match)
	return err
}

func (s *MatchStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, match *ladder.Match) error {
	_, err := tx.NamedExecContext(ctx, updateMatchQuery, match)
	return err
}

func (s *MatchStore) DeleteMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	return err
}

func (s *MatchStore) ListMatchesForUser(ctx context.Context, userID uuid.UUID) ([]ladder.Match, error) {
	var matches []ladder.Match
	err := s.db.SelectContext(ctx, &matches, listMatchesForUserQuery, userID, userID)
	return matches, err
}

// Adjustment requests. At most one row per match, enforced by the primary key.

func (s *MatchStore) GetAdjustmentTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) (*ladder.AdjustmentRequest, error) {
	var req ladder.AdjustmentRequest
	err := tx.GetContext(ctx, &req, "SELECT * FROM adjustment_requests WHERE match_id = ?", matchID)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *MatchStore) CreateAdjustmentTx(ctx context.Context, tx *sqlx.Tx, req *ladder.AdjustmentRequest) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO adjustment_requests (match_id, requested_by, proposed_games, proposed_opponent_id)
		VALUES (:match_id, :requested_by, :proposed_games, :proposed_opponent_id)
	`, req)
	return err
}

func (s *MatchStore) DeleteAdjustmentTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM adjustment_requests WHERE match_id = ?", matchID)
	return err
}

// Ranking logs.

func (s *MatchStore) InsertRankingLogTx(ctx context.Context, tx *sqlx.Tx, log *ladder.RankingLog) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO ranking_logs (id, user_id, match_id, rating_before, rating_after, delta, org_id)
		VALUES (:id, :user_id, :match_id, :rating_before, :rating_after, :delta, :org_id)
	`, log)
	return err
}

func (s *MatchStore) ListRankingLogsByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) ([]ladder.RankingLog, error) {
	var logs []ladder.RankingLog
	err := tx.SelectContext(ctx, &logs, "SELECT * FROM ranking_logs WHERE match_id = ?", matchID)
	return logs, err
}

func (s *MatchStore) DeleteRankingLogsByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM ranking_logs WHERE match_id = ?", matchID)
	return err
}

func (s *MatchStore) ListRankingLogsByUser(ctx context.Context, userID uuid.UUID) ([]ladder.RankingLog, error) {
	var logs []ladder.RankingLog
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM ranking_logs WHERE user_id = ? ORDER BY created_at DESC", userID)
	return logs, err
}
