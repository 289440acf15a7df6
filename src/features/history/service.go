package history

import (
	"context"
	"log/slog"
)

// DefaultLimit is how many records the panel and the bot show.
const DefaultLimit = 20

// Service exposes the dispatch history.
type Service struct {
	store Store
}

// NewService creates a new history service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Recent returns the latest records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	records, err := s.store.RecentDispatches(ctx, limit)
	if err != nil {
		slog.Error("Failed to load dispatch history", "error", err)
		return nil, err
	}
	return records, nil
}

// Totals returns how many dispatches succeeded and failed overall.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	return s.store.CountDispatches(ctx)
}
