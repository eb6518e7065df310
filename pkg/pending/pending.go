// Package pending persists staged update/delete proposals awaiting user
// confirmation.
//
// The assistant may only mutate an expense record after the user confirms. A
// staged proposal records what was proposed (target record plus the field
// changes for an update) keyed by session thread, with an expiry. The
// confirmation check is performed by code against this table, not inferred by
// the model from conversation history. One proposal per thread: staging a new
// proposal replaces the previous one.
package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hamzah/kharcha/pkg/expense"
)

// Kind is the destructive operation a proposal is for.
type Kind string

const (
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Action is a staged proposal awaiting confirmation.
type Action struct {
	SessionKey string
	Kind       Kind
	RecordID   int64
	Fields     expense.Patch
	ExpiresAt  time.Time
}

// Store persists proposals in the pending_actions table.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore creates a store over the shared database pool. ttl bounds how long
// a staged proposal stays confirmable.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{db: db, ttl: ttl}
}

// Stage records a proposal for the thread, replacing any previous one.
func (s *Store) Stage(ctx context.Context, sessionKey string, kind Kind, recordID int64, fields expense.Patch) error {
	if sessionKey == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if recordID <= 0 {
		return fmt.Errorf("record id is required")
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal proposal fields: %w", err)
	}

	expiresAt := time.Now().Add(s.ttl)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_actions (session_key, kind, record_id, fields_json, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET
			kind = excluded.kind,
			record_id = excluded.record_id,
			fields_json = excluded.fields_json,
			expires_at = excluded.expires_at`,
		sessionKey, string(kind), recordID, string(fieldsJSON), expiresAt,
	); err != nil {
		return fmt.Errorf("stage proposal: %w", err)
	}

	log.Debug().Str("session_key", sessionKey).Str("kind", string(kind)).Int64("record", recordID).
		Msg("Proposal staged")
	return nil
}

// Get returns the thread's live proposal, or nil when none exists. An expired
// proposal is pruned on read and reported as absent.
func (s *Store) Get(ctx context.Context, sessionKey string) (*Action, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_key, kind, record_id, fields_json, expires_at
		 FROM pending_actions WHERE session_key = ?`,
		sessionKey,
	)

	var action Action
	var kind, fieldsJSON string
	err := row.Scan(&action.SessionKey, &kind, &action.RecordID, &fieldsJSON, &action.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}

	if time.Now().After(action.ExpiresAt) {
		if err := s.Consume(ctx, sessionKey); err != nil {
			return nil, err
		}
		return nil, nil
	}

	action.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(fieldsJSON), &action.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal proposal fields: %w", err)
	}
	return &action, nil
}

// Consume removes the thread's proposal after it has been applied or
// cancelled.
func (s *Store) Consume(ctx context.Context, sessionKey string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_actions WHERE session_key = ?`, sessionKey,
	); err != nil {
		return fmt.Errorf("consume proposal: %w", err)
	}
	return nil
}

// SweepExpired prunes all expired proposals and returns how many were removed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_actions WHERE expires_at < ?`, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep proposals: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Expired proposals pruned")
	}
	return removed, nil
}
