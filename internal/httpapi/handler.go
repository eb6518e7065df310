// Package httpapi provides the HTTP surface of the kharcha server.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/hamzah/kharcha/internal/metrics"
	"github.com/hamzah/kharcha/pkg/authn"
	"github.com/hamzah/kharcha/pkg/expense"
)

// ChatRunner handles one conversational turn for an owner.
type ChatRunner interface {
	HandleChat(ctx context.Context, ownerID int64, query string) (string, error)
}

// Handler provides common handler utilities and dependencies.
type Handler struct {
	runner   ChatRunner
	expenses *expense.Store
	tokens   *authn.Store
	metrics  *metrics.Metrics
	db       *sql.DB
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(runner ChatRunner, expenses *expense.Store, tokens *authn.Store, m *metrics.Metrics, db *sql.DB) *Handler {
	return &Handler{
		runner:   runner,
		expenses: expenses,
		tokens:   tokens,
		metrics:  m,
		db:       db,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
