// Package progress defines the sink batch runs report chunk-level snapshots
// to. The UI layer owning websockets or polling implements Sink; the default
// implementation just logs.
package progress

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Snapshot is emitted after every processed chunk.
type Snapshot struct {
	Current int `json:"current"`
	Total   int `json:"total"`

	Matched int `json:"matched"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

type Sink interface {
	Report(ctx context.Context, userID uuid.UUID, progressID string, s Snapshot)
}

type SlogSink struct{}

func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

func (*SlogSink) Report(_ context.Context, userID uuid.UUID, progressID string, s Snapshot) {
	slog.Info("import progress",
		"user_id", userID,
		"progress_id", progressID,
		"current", s.Current,
		"total", s.Total,
		"matched", s.Matched,
		"created", s.Created,
		"skipped", s.Skipped,
		"errored", s.Errored,
	)
}
