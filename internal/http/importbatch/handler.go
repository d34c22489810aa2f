package importbatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
)

type Handler struct {
	svc *importbatch.Service
}

func NewHandler(svc *importbatch.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Get("/{id}/rows", h.rows)
}

type batchResponse struct {
	ID          uuid.UUID         `json:"id"`
	Filename    string            `json:"filename"`
	Status      string            `json:"status"`
	TotalRows   int               `json:"total_rows"`
	Matched     int               `json:"matched"`
	Created     int               `json:"created"`
	Skipped     int               `json:"skipped"`
	Errored     int               `json:"errored"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type rowResponse struct {
	ID            uuid.UUID  `json:"id"`
	RowNumber     int        `json:"row_number"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	batch, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), batchID)
	if err != nil {
		writeBatchError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toBatchResponse(batch)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) rows(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	rows, err := h.svc.Rows(r.Context(), auth.UserID(r.Context()), batchID)
	if err != nil {
		writeBatchError(w, err)
		return
	}

	responses := make([]rowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, rowResponse{
			ID:            row.ID,
			RowNumber:     row.RowNumber,
			Status:        string(row.Status),
			ErrorMessage:  row.ErrorMessage,
			TransactionID: row.TransactionID,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(responses); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeBatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, importbatch.ErrBatchNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func toBatchResponse(b *importbatch.Batch) batchResponse {
	return batchResponse{
		ID:          b.ID,
		Filename:    b.Filename,
		Status:      string(b.Status),
		TotalRows:   b.TotalRows,
		Matched:     b.MatchedCount,
		Created:     b.CreatedCount,
		Skipped:     b.SkippedCount,
		Errored:     b.ErrorCount,
		Metadata:    b.Metadata,
		CompletedAt: b.CompletedAt,
		CreatedAt:   b.CreatedAt,
	}
}
