package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no record matches both owner and record id.
var ErrNotFound = errors.New("expense record not found")

// Store persists expense records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the shared database pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a new record and returns its id.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	if rec.OwnerID <= 0 {
		return 0, fmt.Errorf("owner id is required")
	}
	if _, err := ParseAmountType(string(rec.AmountType)); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category, amount, amount_type, date) VALUES (?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.Category, rec.Amount, string(rec.AmountType), nullable(rec.Date),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}

	log.Debug().Int64("owner", rec.OwnerID).Int64("id", id).Msg("Expense added")
	return id, nil
}

// Get loads a single record matching both owner and record id.
func (s *Store) Get(ctx context.Context, ownerID, recordID int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, amount, amount_type, date, created_at
		 FROM expenses WHERE user_id = ? AND id = ?`,
		ownerID, recordID,
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	return rec, nil
}

// List returns all records for an owner, newest date first.
func (s *Store) List(ctx context.Context, ownerID int64) ([]Record, error) {
	return s.list(ctx, ownerID, 0)
}

// ListRecent returns the most recent records for an owner ordered by date
// descending, capped at limit.
func (s *Store) ListRecent(ctx context.Context, ownerID int64, limit int) ([]Record, error) {
	return s.list(ctx, ownerID, limit)
}

func (s *Store) list(ctx context.Context, ownerID int64, limit int) ([]Record, error) {
	query := `SELECT id, user_id, category, amount, amount_type, date, created_at
		 FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return records, nil
}

// Update applies the non-nil fields of patch to the record matching both owner
// and record id. Returns ErrNotFound when no such record exists.
func (s *Store) Update(ctx context.Context, ownerID, recordID int64, patch Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.AmountType != nil {
		at, err := ParseAmountType(string(*patch.AmountType))
		if err != nil {
			return err
		}
		sets = append(sets, "amount_type = ?")
		args = append(args, string(at))
	}
	if patch.Date != nil {
		date, err := ParseDate(*patch.Date)
		if err != nil {
			return err
		}
		sets = append(sets, "date = ?")
		args = append(args, date)
	}

	args = append(args, ownerID, recordID)
	query := fmt.Sprintf(`UPDATE expenses SET %s WHERE user_id = ? AND id = ?`, strings.Join(sets, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	log.Debug().Int64("owner", ownerID).Int64("id", recordID).Msg("Expense updated")
	return nil
}

// Delete removes the record matching both owner and record id.
func (s *Store) Delete(ctx context.Context, ownerID, recordID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE user_id = ? AND id = ?`, ownerID, recordID,
	)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	log.Debug().Int64("owner", ownerID).Int64("id", recordID).Msg("Expense deleted")
	return nil
}

// DeleteMany removes the owner's records whose ids appear in ids and returns
// how many were deleted.
func (s *Store) DeleteMany(ctx context.Context, ownerID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM expenses WHERE user_id = ? AND id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var date sql.NullString
	var amountType string

	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Category, &rec.Amount, &amountType, &date, &rec.CreatedAt); err != nil {
		return nil, err
	}

	rec.AmountType = AmountType(amountType)
	if date.Valid {
		rec.Date = date.String
	}
	return &rec, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
