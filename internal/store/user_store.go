package store

import (
	"context"

	"github.com/PindaZ/pingpong-pro-sub000/internal/ladder"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery        = "SELECT * FROM users WHERE id = ?"
	getUserByEmailQuery = "SELECT * FROM users WHERE email = ?"
	createUserQuery     = `
		INSERT INTO users (id, email, username, rating, role, org_id) VALUES
		(:id, :email, :username, :rating, :role, :org_id)
	`
	listByRatingQuery     = "SELECT * FROM users ORDER BY rating DESC, username ASC"
	updateUserRatingQuery = "UPDATE users SET rating = ? WHERE id = ?"
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*ladder.User, error) {
	var user ladder.User
	err := s.db.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*ladder.User, error) {
	var user ladder.User
	err := tx.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*ladder.User, error) {
	var user ladder.User
	err := s.db.GetContext(ctx, &user, getUserByEmailQuery, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *ladder.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

func (s *UserStore) ListByRating(ctx context.Context) ([]ladder.User, error) {
	var users []ladder.User
	err := s.db.SelectContext(ctx, &users, listByRatingQuery)
	return users, err
}

func (s *UserStore) UpdateRatingTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, rating int) error {
	_, err := tx.ExecContext(ctx, updateUserRatingQuery, rating, id)
	return err
}
