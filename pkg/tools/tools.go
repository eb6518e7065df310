package tools

import (
	"database/sql"
	"fmt"

	"github.com/hamzah/kharcha/pkg/expense"
	"github.com/hamzah/kharcha/pkg/pending"
)

// RegisterAll registers the assistant's fixed tool set: guarded query,
// fetch, update, delete. Nothing else is ever exposed to the model.
func RegisterAll(r *Registry, db *sql.DB, store *expense.Store, proposals *pending.Store) error {
	defs := []Definition{
		NewQueryTool(db),
		NewFetchTool(store),
		NewUpdateTool(store, proposals),
		NewDeleteTool(store, proposals),
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return fmt.Errorf("register %s: %w", def.Name, err)
		}
	}
	return nil
}
