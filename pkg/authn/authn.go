// Package authn resolves bearer API tokens to owner identities.
//
// Token issuance happens out-of-band through the CLI; the HTTP layer only ever
// resolves an existing token. The owner id obtained here is the sole source of
// identity for every downstream operation.
package authn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned when a token is unknown.
var ErrInvalidToken = errors.New("invalid API token")

const tokenLength = 32

// Store persists users and their API tokens.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the shared database pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a user and returns its id.
func (s *Store) CreateUser(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("email cannot be empty")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (email) VALUES (?)`, email)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}

	log.Info().Int64("user", id).Msg("User created")
	return id, nil
}

// FindUserByEmail returns the id of the user with the given email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no user with email %q", email)
	}
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}
	return id, nil
}

// MintToken generates a new API token for the user and stores it.
func (s *Store) MintToken(ctx context.Context, userID int64) (string, error) {
	token, err := gonanoid.New(tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token, user_id) VALUES (?, ?)`, token, userID,
	); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	log.Info().Int64("user", userID).Msg("API token minted")
	return token, nil
}

// Resolve maps a bearer token to the owning user id.
func (s *Store) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM api_tokens WHERE token = ?`, token,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	return userID, nil
}

// Revoke deletes a token.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
