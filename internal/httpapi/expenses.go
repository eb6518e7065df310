package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hamzah/kharcha/pkg/expense"
)

type addExpenseRequest struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	AmountType string  `json:"amount_type"`
	Date       string  `json:"date"`
}

type deleteManyRequest struct {
	IDs []int64 `json:"ids"`
}

// AddExpense creates an expense record for the authenticated owner.
func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req addExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amountType, err := expense.ParseAmountType(req.AmountType)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	date := ""
	if req.Date != "" {
		if date, err = expense.ParseDate(req.Date); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id, err := h.expenses.Add(r.Context(), expense.Record{
		OwnerID:    ownerID,
		Category:   req.Category,
		Amount:     req.Amount,
		AmountType: amountType,
		Date:       date,
	})
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to add expense")
		Error(w, http.StatusInternalServerError, "failed to add expense")
		return
	}

	record, err := h.expenses.Get(r.Context(), ownerID, id)
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to load created expense")
		Error(w, http.StatusInternalServerError, "failed to load created expense")
		return
	}

	JSON(w, http.StatusCreated, record)
}

// ListExpenses returns all expense records for the authenticated owner.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	records, err := h.expenses.List(r.Context(), ownerID)
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to list expenses")
		Error(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if records == nil {
		records = []expense.Record{}
	}

	JSON(w, http.StatusOK, records)
}

// UpdateExpense applies a partial update to one of the owner's records.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var patch expense.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	err = h.expenses.Update(r.Context(), ownerID, id, patch)
	if errors.Is(err, expense.ErrNotFound) {
		Error(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		// Invalid field values surface as client errors.
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.expenses.Get(r.Context(), ownerID, id)
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to load updated expense")
		Error(w, http.StatusInternalServerError, "failed to load updated expense")
		return
	}

	JSON(w, http.StatusOK, record)
}

// DeleteExpense removes one of the owner's records.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	err = h.expenses.Delete(r.Context(), ownerID, id)
	if errors.Is(err, expense.ErrNotFound) {
		Error(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to delete expense")
		Error(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "expense deleted"})
}

// DeleteExpenses removes a batch of the owner's records by id.
func (h *Handler) DeleteExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req deleteManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		Error(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}

	deleted, err := h.expenses.DeleteMany(r.Context(), ownerID, req.IDs)
	if err != nil {
		log.Error().Err(err).Int64("owner", ownerID).Msg("Failed to delete expenses")
		Error(w, http.StatusInternalServerError, "failed to delete expenses")
		return
	}
	if deleted == 0 {
		Error(w, http.StatusNotFound, "no records with the given ids")
		return
	}

	JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
