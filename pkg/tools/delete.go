package tools

import (
	"context"
	"errors"

	"github.com/hamzah/kharcha/pkg/expense"
	"github.com/hamzah/kharcha/pkg/pending"
)

const (
	msgDeleteParams  = "user_id and record_id are required."
	msgConfirmDelete = "Please confirm before deletion."
	msgDeleted       = "Record deleted successfully."
)

// NewDeleteTool builds the confirmed-delete tool. Same confirmation protocol
// as update: stage on the unconfirmed call, mutate only on a confirmed call
// consistent with the staged proposal.
func NewDeleteTool(store *expense.Store, proposals *pending.Store) Definition {
	return Definition{
		Name: "delete_record",
		Description: "Delete one of the user's expense records. " +
			"Always show the record first, then call this with confirmation=false, " +
			"and only set confirmation=true after the user has explicitly said yes.",
		Parameters: []Parameter{
			{Name: "record_id", Type: "integer", Description: "ID of the record to delete"},
			{Name: "confirmation", Type: "boolean", Description: "Whether the user has confirmed this deletion"},
		},
		Handler: func(ctx context.Context, ec ExecContext, params map[string]interface{}) (string, error) {
			recordID, ok := int64Param(params, "record_id")
			if ec.OwnerID <= 0 || !ok || recordID <= 0 {
				return msgDeleteParams, nil
			}

			if _, err := store.Get(ctx, ec.OwnerID, recordID); err != nil {
				if errors.Is(err, expense.ErrNotFound) {
					return msgNotFound(recordID), nil
				}
				return "", err
			}

			if !boolParam(params, "confirmation") {
				if err := proposals.Stage(ctx, ec.SessionKey, pending.KindDelete, recordID, expense.Patch{}); err != nil {
					return "", err
				}
				return msgConfirmDelete, nil
			}

			staged, err := proposals.Get(ctx, ec.SessionKey)
			if err != nil {
				return "", err
			}
			if staged != nil && (staged.Kind != pending.KindDelete || staged.RecordID != recordID) {
				if err := proposals.Stage(ctx, ec.SessionKey, pending.KindDelete, recordID, expense.Patch{}); err != nil {
					return "", err
				}
				return msgStaleProposal(recordID), nil
			}

			if err := store.Delete(ctx, ec.OwnerID, recordID); err != nil {
				if errors.Is(err, expense.ErrNotFound) {
					return msgNotFound(recordID), nil
				}
				return "", err
			}
			if err := proposals.Consume(ctx, ec.SessionKey); err != nil {
				return "", err
			}
			return msgDeleted, nil
		},
	}
}
