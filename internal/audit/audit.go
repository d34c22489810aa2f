// Package audit emits structured audit events for transaction mutations.
// Durable storage is owned by an external writer; this package only defines
// the event shape and a default slog-backed emitter.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreated       Action = "created"
	ActionManualEdit    Action = "manual_edit"
	ActionCSVMerge      Action = "csv_merge"
	ActionMatchReviewed Action = "match_reviewed"
)

type Event struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Action        Action
	Fields        []string
	At            time.Time
}

type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// SlogEmitter logs events; the default sink when no external writer is wired.
type SlogEmitter struct{}

func NewSlogEmitter() *SlogEmitter {
	return &SlogEmitter{}
}

func (*SlogEmitter) Emit(_ context.Context, e Event) {
	slog.Info("audit event",
		"action", string(e.Action),
		"transaction_id", e.TransactionID,
		"user_id", e.UserID,
		"fields", e.Fields,
	)
}
