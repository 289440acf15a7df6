package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/contre95/mailwatch/src/features/watching"
	"github.com/google/uuid"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Record is one dispatch attempt. Files holds basenames.
type Record struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	SentAt    time.Time `json:"sentAt"`
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Files     []string  `json:"files"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Totals counts dispatches by outcome.
type Totals struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Store persists dispatch records.
type Store interface {
	AddDispatch(ctx context.Context, record *Record) error
	RecentDispatches(ctx context.Context, limit int) ([]Record, error)
	CountDispatches(ctx context.Context) (Totals, error)
}

// RecordingDispatcher writes a Record for every batch handed to the wrapped dispatcher.
// A store failure is logged and never changes the dispatch result.
type RecordingDispatcher struct {
	next  watching.Dispatcher
	store Store
	now   func() time.Time
}

// NewRecordingDispatcher wraps next so every dispatch ends up in store.
func NewRecordingDispatcher(next watching.Dispatcher, store Store) *RecordingDispatcher {
	return &RecordingDispatcher{next: next, store: store, now: time.Now}
}

func (d *RecordingDispatcher) Dispatch(ctx context.Context, paths []string, recipient, sender string) error {
	err := d.next.Dispatch(ctx, paths, recipient, sender)

	record := &Record{
		ID:        uuid.New().String(),
		Session:   watching.SessionID(ctx),
		SentAt:    d.now(),
		Recipient: recipient,
		Sender:    sender,
		Files:     make([]string, len(paths)),
		Status:    StatusSent,
	}
	for i, p := range paths {
		record.Files[i] = filepath.Base(p)
	}
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
	}
	// the session context may already be cancelled when a stop raced the send
	if storeErr := d.store.AddDispatch(context.WithoutCancel(ctx), record); storeErr != nil {
		slog.Warn("Failed to record dispatch", "id", record.ID, "error", storeErr)
	}
	return err
}
