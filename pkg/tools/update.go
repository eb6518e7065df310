package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamzah/kharcha/pkg/expense"
	"github.com/hamzah/kharcha/pkg/pending"
)

const (
	msgConfirmUpdate = "Please confirm before updating the record."
	msgUpdated       = "Record updated successfully."
	msgNoFields      = "No changes were specified. Tell me which fields to update."
)

func msgNotFound(recordID int64) string {
	return fmt.Sprintf("No record found with ID %d.", recordID)
}

func msgStaleProposal(recordID int64) string {
	return fmt.Sprintf("The pending confirmation did not match this request. Please confirm the action on record %d again.", recordID)
}

// NewUpdateTool builds the confirmed-update tool. An unconfirmed call stages
// the proposal and asks for confirmation; only a confirmed call that is
// consistent with the staged proposal (when one exists) mutates the store.
func NewUpdateTool(store *expense.Store, proposals *pending.Store) Definition {
	return Definition{
		Name: "update_record",
		Description: "Update one of the user's expense records. " +
			"Always show the record and the proposed changes first, then call this with confirmation=false to stage the change, " +
			"and only set confirmation=true after the user has explicitly said yes.",
		Parameters: []Parameter{
			{Name: "record_id", Type: "integer", Description: "ID of the record to update", Required: true},
			{Name: "category", Type: "string", Description: "New category"},
			{Name: "amount", Type: "number", Description: "New amount"},
			{Name: "amount_type", Type: "string", Description: "New amount type: DEBIT or CREDIT"},
			{Name: "date", Type: "string", Description: "New date in YYYY-MM-DD format"},
			{Name: "confirmation", Type: "boolean", Description: "Whether the user has confirmed this update"},
		},
		Handler: func(ctx context.Context, ec ExecContext, params map[string]interface{}) (string, error) {
			recordID, ok := int64Param(params, "record_id")
			if !ok || recordID <= 0 {
				return "record_id is required.", nil
			}

			if _, err := store.Get(ctx, ec.OwnerID, recordID); err != nil {
				if errors.Is(err, expense.ErrNotFound) {
					return msgNotFound(recordID), nil
				}
				return "", err
			}

			patch, msg := patchFromParams(params)
			if msg != "" {
				return msg, nil
			}

			if !boolParam(params, "confirmation") {
				if patch.IsEmpty() {
					return msgNoFields, nil
				}
				if err := proposals.Stage(ctx, ec.SessionKey, pending.KindUpdate, recordID, patch); err != nil {
					return "", err
				}
				return msgConfirmUpdate, nil
			}

			staged, err := proposals.Get(ctx, ec.SessionKey)
			if err != nil {
				return "", err
			}
			if staged != nil {
				if staged.Kind != pending.KindUpdate || staged.RecordID != recordID {
					if err := proposals.Stage(ctx, ec.SessionKey, pending.KindUpdate, recordID, patch); err != nil {
						return "", err
					}
					return msgStaleProposal(recordID), nil
				}
				// The staged proposal is authoritative for what was agreed;
				// explicitly re-supplied fields override it.
				patch = mergePatch(staged.Fields, patch)
			}

			if patch.IsEmpty() {
				return msgNoFields, nil
			}

			if err := store.Update(ctx, ec.OwnerID, recordID, patch); err != nil {
				if errors.Is(err, expense.ErrNotFound) {
					return msgNotFound(recordID), nil
				}
				return "", err
			}
			if err := proposals.Consume(ctx, ec.SessionKey); err != nil {
				return "", err
			}
			return msgUpdated, nil
		},
	}
}

// patchFromParams builds a Patch from the optional field parameters. A
// non-empty message means a field value was invalid and should be relayed.
func patchFromParams(params map[string]interface{}) (expense.Patch, string) {
	var patch expense.Patch

	if category, ok := stringParam(params, "category"); ok {
		patch.Category = &category
	}
	if amount, ok := float64Param(params, "amount"); ok {
		patch.Amount = &amount
	}
	if raw, ok := stringParam(params, "amount_type"); ok {
		at, err := expense.ParseAmountType(raw)
		if err != nil {
			return expense.Patch{}, err.Error()
		}
		patch.AmountType = &at
	}
	if raw, ok := stringParam(params, "date"); ok {
		date, err := expense.ParseDate(raw)
		if err != nil {
			return expense.Patch{}, err.Error()
		}
		patch.Date = &date
	}

	return patch, ""
}

// mergePatch overlays the explicitly supplied fields onto the staged ones.
func mergePatch(staged, supplied expense.Patch) expense.Patch {
	merged := staged
	if supplied.Category != nil {
		merged.Category = supplied.Category
	}
	if supplied.Amount != nil {
		merged.Amount = supplied.Amount
	}
	if supplied.AmountType != nil {
		merged.AmountType = supplied.AmountType
	}
	if supplied.Date != nil {
		merged.Date = supplied.Date
	}
	return merged
}
