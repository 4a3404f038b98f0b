package store

import (
	"context"

	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	getTournamentQuery    = "SELECT * FROM tournaments WHERE id = ?"
	createTournamentQuery = `
		INSERT INTO tournaments (id, name, creator_id, starts_at, ends_at, max_participants, seeding_type, bracket_generated)
		VALUES (:id, :name, :creator_id, :starts_at, :ends_at, :max_participants, :seeding_type, :bracket_generated)
	`
	getBracketMatchQuery           = "SELECT * FROM bracket_matches WHERE id = ?"
	getBracketMatchByPositionQuery = "SELECT * FROM bracket_matches WHERE tournament_id = ? AND round = ? AND position = ?"
	updateBracketMatchQuery        = `
		UPDATE bracket_matches SET
			player1_id = :player1_id,
			player2_id = :player2_id,
			winner_id = :winner_id,
			score1 = :score1,
			score2 = :score2,
			status = :status,
			result_match_id = :result_match_id
		WHERE id = :id
	`
)

func (s *TournamentStore) CreateTournament(ctx context.Context, t *tournament.Tournament) error {
	_, err := s.db.NamedExecContext(ctx, createTournamentQuery, t)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := s.db.GetContext(ctx, &t, getTournamentQuery, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := tx.GetContext(ctx, &t, getTournamentQuery, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) SetBracketGeneratedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET bracket_generated = 1 WHERE id = ?", id)
	return err
}

func (s *TournamentStore) AddParticipant(ctx context.Context, p *tournament.Participant) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tournament_participants (tournament_id, user_id, seed)
		VALUES (:tournament_id, :user_id, :seed)
	`, p)
	return err
}

func (s *TournamentStore) RemoveParticipant(ctx context.Context, tournamentID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM tournament_participants WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	return err
}

func (s *TournamentStore) GetParticipant(ctx context.Context, tournamentID, userID uuid.UUID) (*tournament.Participant, error) {
	var p tournament.Participant
	err := s.db.GetContext(ctx, &p,
		"SELECT * FROM tournament_participants WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *TournamentStore) ListParticipants(ctx context.Context, tournamentID uuid.UUID) ([]tournament.Participant, error) {
	var participants []tournament.Participant
	err := s.db.SelectContext(ctx, &participants,
		"SELECT * FROM tournament_participants WHERE tournament_id = ? ORDER BY seed ASC, created_at ASC",
		tournamentID)
	return participants, err
}

func (s *TournamentStore) ListParticipantsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]tournament.Participant, error) {
	var participants []tournament.Participant
	err := tx.SelectContext(ctx, &participants,
		"SELECT * FROM tournament_participants WHERE tournament_id = ? ORDER BY seed ASC, created_at ASC",
		tournamentID)
	return participants, err
}

func (s *TournamentStore) CountParticipants(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = ?", tournamentID)
	return count, err
}

func (s *TournamentStore) UpdateParticipantSeedTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID, seed int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tournament_participants SET seed = ? WHERE tournament_id = ? AND user_id = ?",
		seed, tournamentID, userID)
	return err
}

func (s *TournamentStore) CreateBracketMatchesTx(ctx context.Context, tx *sqlx.Tx, matches []tournament.BracketMatch) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO bracket_matches (id, tournament_id, round, position, player1_id, player2_id, winner_id, score1, score2, status, result_match_id)
		VALUES (:id, :tournament_id, :round, :position, :player1_id, :player2_id, :winner_id, :score1, :score2, :status, :result_match_id)
	`, matches)
	return err
}

func (s *TournamentStore) GetBracketMatch(ctx context.Context, id uuid.UUID) (*tournament.BracketMatch, error) {
	var m tournament.BracketMatch
	err := s.db.GetContext(ctx, &m, getBracketMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *TournamentStore) GetBracketMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*tournament.BracketMatch, error) {
	var m tournament.BracketMatch
	err := tx.GetContext(ctx, &m, getBracketMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *TournamentStore) GetBracketMatchByPositionTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, round, position int) (*tournament.BracketMatch, error) {
	var m tournament.BracketMatch
	err := tx.GetContext(ctx, &m, getBracketMatchByPositionQuery, tournamentID, round, position)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *TournamentStore) GetBracketMatchByResultMatchTx(ctx context.Context, tx *sqlx.Tx, resultMatchID uuid.UUID) (*tournament.BracketMatch, error) {
	var m tournament.BracketMatch
	err := tx.GetContext(ctx, &m,
		"SELECT * FROM bracket_matches WHERE result_match_id = ?", resultMatchID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *TournamentStore) UpdateBracketMatchTx(ctx context.Context, tx *sqlx.Tx, m *tournament.BracketMatch) error {
	_, err := tx.NamedExecContext(ctx, updateBracketMatchQuery, m)
	return err
}

func (s *TournamentStore) ListBracketMatches(ctx context.Context, tournamentID uuid.UUID) ([]tournament.BracketMatch, error) {
	var matches []tournament.BracketMatch
	err := s.db.SelectContext(ctx, &matches,
		"SELECT * FROM bracket_matches WHERE tournament_id = ? ORDER BY round ASC, position ASC",
		tournamentID)
	return matches, err
}
