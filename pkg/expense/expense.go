// Package expense is the owner-scoped expense record store.
//
// Every operation takes the owner id explicitly and never returns or touches
// another owner's rows.
package expense

import (
	"fmt"
	"strings"
	"time"
)

// AmountType classifies a record as money out or money in.
type AmountType string

const (
	Debit  AmountType = "DEBIT"
	Credit AmountType = "CREDIT"
)

// ParseAmountType normalizes and validates an amount type value.
func ParseAmountType(s string) (AmountType, error) {
	switch AmountType(strings.ToUpper(strings.TrimSpace(s))) {
	case Debit:
		return Debit, nil
	case Credit:
		return Credit, nil
	default:
		return "", fmt.Errorf("amount_type must be DEBIT or CREDIT, got %q", s)
	}
}

// DateLayout is the canonical date format for expense records.
const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD date string.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD, got %q", s)
	}
	return t.Format(DateLayout), nil
}

// Record is a single expense entry. OwnerID is immutable after creation.
type Record struct {
	ID         int64      `json:"id"`
	OwnerID    int64      `json:"user_id"`
	Category   string     `json:"category"`
	Amount     float64    `json:"amount"`
	AmountType AmountType `json:"amount_type"`
	Date       string     `json:"date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Patch carries optional field updates; nil fields are left untouched.
type Patch struct {
	Category   *string     `json:"category,omitempty"`
	Amount     *float64    `json:"amount,omitempty"`
	AmountType *AmountType `json:"amount_type,omitempty"`
	Date       *string     `json:"date,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Category == nil && p.Amount == nil && p.AmountType == nil && p.Date == nil
}
