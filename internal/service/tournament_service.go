package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/PindaZ/pingpong-pro-sub000/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore) *TournamentService {
	return &TournamentService{db: db, store: store}
}

type CreateTournamentInput struct {
	Name            string
	StartsAt        time.Time
	EndsAt          time.Time
	MaxParticipants int
	SeedingType     tournament.SeedingType
}

type TournamentData struct {
	Tournament   *tournament.Tournament    `json:"tournament"`
	Participants []tournament.Participant  `json:"participants"`
	Bracket      []tournament.BracketMatch `json:"bracket"`
}

func (s *TournamentService) Create(ctx context.Context, creator *ladder.User, in CreateTournamentInput) (*tournament.Tournament, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if in.MaxParticipants <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, ErrTournamentInvalidDates
	}
	if in.SeedingType == "" {
		in.SeedingType = tournament.SeedingRandom
	}
	if in.SeedingType != tournament.SeedingRandom && in.SeedingType != tournament.SeedingElo {
		return nil, fmt.Errorf("%w: unknown seeding type %q", ErrValidationFailed, in.SeedingType)
	}

	t := &tournament.Tournament{
		ID:              uuid.New(),
		Name:            in.Name,
		CreatorID:       creator.ID,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		MaxParticipants: in.MaxParticipants,
		SeedingType:     in.SeedingType,
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *TournamentService) Get(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	t, err := s.store.GetTournament(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	participants, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	bracket, err := s.store.ListBracketMatches(ctx, id)
	if err != nil {
		return nil, err
	}

	return &TournamentData{
		Tournament:   t,
		Participants: participants,
		Bracket:      bracket,
	}, nil
}

func (s *TournamentService) Join(ctx context.Context, tournamentID uuid.UUID, user *ladder.User) error {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.BracketGenerated {
		return ErrBracketAlreadyGenerated
	}

	if _, err := s.store.GetParticipant(ctx, tournamentID, user.ID); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	count, err := s.store.CountParticipants(ctx, tournamentID)
	if err != nil {
		return err
	}
	if count >= t.MaxParticipants {
		return ErrTournamentFull
	}

	return s.store.AddParticipant(ctx, &tournament.Participant{
		TournamentID: tournamentID,
		UserID:       user.ID,
	})
}

func (s *TournamentService) Leave(ctx context.Context, tournamentID uuid.UUID, user *ladder.User) error {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.BracketGenerated {
		return ErrBracketAlreadyGenerated
	}

	if _, err := s.store.GetParticipant(ctx, tournamentID, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrParticipantNotFound
		}
		return err
	}

	return s.store.RemoveParticipant(ctx, tournamentID, user.ID)
}
