package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/PindaZ/pingpong-pro-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserService struct {
	db      *sqlx.DB
	users   *store.UserStore
	matches *store.MatchStore
}

func NewUserService(db *sqlx.DB, users *store.UserStore, matches *store.MatchStore) *UserService {
	return &UserService{db: db, users: users, matches: matches}
}

type RegisterInput struct {
	Email    string
	Username string
	OrgID    *string
}

// Register creates a new player at the default rating. Identity
// verification is owned by the external auth subsystem; this only creates
// the ladder-side record.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*ladder.User, error) {
	if in.Email == "" || in.Username == "" {
		return nil, fmt.Errorf("%w: email and username are required", ErrValidationFailed)
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailConflict
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user := &ladder.User{
		ID:       uuid.New(),
		Email:    in.Email,
		Username: in.Username,
		Rating:   ladder.DefaultRating,
		Role:     ladder.RoleUser,
		OrgID:    in.OrgID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// LoginByEmail resolves an email to a user so a session can be established.
// Stands in for the external identity provider.
func (s *UserService) LoginByEmail(ctx context.Context, email string) (*ladder.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*ladder.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Rankings returns the ladder ordered by rating, best first.
func (s *UserService) Rankings(ctx context.Context) ([]ladder.User, error) {
	return s.users.ListByRating(ctx)
}

// RatingHistory returns a user's ranking log rows, newest first.
func (s *UserService) RatingHistory(ctx context.Context, userID uuid.UUID) ([]ladder.RankingLog, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.matches.ListRankingLogsByUser(ctx, userID)
}
