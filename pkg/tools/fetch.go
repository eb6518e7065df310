package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamzah/kharcha/pkg/expense"
)

const msgNoExpenses = "No expenses found for this user."

const fetchLimit = 10

// NewFetchTool builds the read-only recent-expenses tool. It takes no
// parameters: the owner comes from the execution context.
func NewFetchTool(store *expense.Store) Definition {
	return Definition{
		Name:        "fetch_expenses",
		Description: "Fetch the user's 10 most recent expense records, newest first, with their IDs.",
		Handler: func(ctx context.Context, ec ExecContext, params map[string]interface{}) (string, error) {
			records, err := store.ListRecent(ctx, ec.OwnerID, fetchLimit)
			if err != nil {
				return "", fmt.Errorf("fetch expenses: %w", err)
			}
			if len(records) == 0 {
				return msgNoExpenses, nil
			}
			return formatRecords(records), nil
		},
	}
}

func formatRecords(records []expense.Record) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatRecord(rec))
	}
	return b.String()
}

func formatRecord(rec expense.Record) string {
	date := rec.Date
	if date == "" {
		date = "-"
	}
	return fmt.Sprintf("ID: %d | Category: %s | Amount: %.2f %s | Date: %s",
		rec.ID, rec.Category, rec.Amount, rec.AmountType, date)
}
