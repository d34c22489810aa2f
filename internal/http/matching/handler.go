package matching

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/flagged", h.listFlagged)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
}

type matchResponse struct {
	ID             uuid.UUID `json:"id"`
	BatchID        uuid.UUID `json:"batch_id"`
	TransactionID  uuid.UUID `json:"transaction_id"`
	Confidence     int       `json:"confidence"`
	MatchedAmount  int64     `json:"matched_amount"`
	MatchedDate    time.Time `json:"matched_date"`
	ExistingDate   time.Time `json:"existing_date"`
	DaysDifference int       `json:"days_difference"`
	Status         string    `json:"status"`
	CandidateName  string    `json:"candidate_name"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) listFlagged(w http.ResponseWriter, r *http.Request) {
	var batchID *uuid.UUID

	if v := r.URL.Query().Get("batch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid batch_id", http.StatusBadRequest)
			return
		}

		batchID = &id
	}

	matches, err := h.svc.ListFlagged(r.Context(), auth.UserID(r.Context()), batchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	responses := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		responses = append(responses, toMatchResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(responses); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type approveResponse struct {
	MergedFields []string `json:"merged_fields"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	mergedFields, err := h.svc.Approve(r.Context(), auth.UserID(r.Context()), matchID)
	if err != nil {
		writeReviewError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(approveResponse{MergedFields: mergedFields}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Reject(r.Context(), auth.UserID(r.Context()), matchID); err != nil {
		writeReviewError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matching.ErrMatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, matching.ErrAlreadyReviewed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, matching.ErrAmountMismatch), errors.Is(err, matching.ErrCurrencyMismatch):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toMatchResponse(m *matching.Match) matchResponse {
	return matchResponse{
		ID:             m.ID,
		BatchID:        m.BatchID,
		TransactionID:  m.TransactionID,
		Confidence:     m.Confidence,
		MatchedAmount:  m.MatchedAmount,
		MatchedDate:    m.MatchedDate,
		ExistingDate:   m.ExistingDate,
		DaysDifference: m.DaysDifference,
		Status:         string(m.Status),
		CandidateName:  m.CSVData.Name,
		CreatedAt:      m.CreatedAt,
	}
}
