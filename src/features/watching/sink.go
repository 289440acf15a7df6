package watching

import (
	"log/slog"
	"sync"
	"time"
)

// StatusSink receives status messages and scan progress from the loop.
// Implementations must be safe to call from the loop goroutine and must not block.
type StatusSink interface {
	Report(message string)
	ReportProgress(percent int)
}

// MultiSink fans every call out to all of its sinks.
type MultiSink []StatusSink

func (m MultiSink) Report(message string) {
	for _, s := range m {
		s.Report(message)
	}
}

func (m MultiSink) ReportProgress(percent int) {
	for _, s := range m {
		s.ReportProgress(percent)
	}
}

// LogSink writes status messages to a structured logger. Progress goes to debug.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s LogSink) Report(message string) {
	s.logger().Info("Watch status", "status", message)
}

func (s LogSink) ReportProgress(percent int) {
	s.logger().Debug("Scan progress", "percent", percent)
}

// ActivityEvent is a filesystem change noticed between scans.
type ActivityEvent struct {
	Path      string
	Timestamp time.Time
}

// Board keeps the latest status for readers on other goroutines (web panel, bot).
type Board struct {
	mu        sync.RWMutex
	message   string
	progress  int
	updatedAt time.Time
	activity  *ActivityEvent
	now       func() time.Time
}

// BoardSnapshot is a copy of the board at one point in time.
type BoardSnapshot struct {
	Message   string         `json:"message"`
	Progress  int            `json:"progress"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Activity  *ActivityEvent `json:"activity,omitempty"`
}

// NewBoard creates a board showing "Idle".
func NewBoard() *Board {
	return &Board{message: "Idle", now: time.Now, updatedAt: time.Now()}
}

func (b *Board) Report(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = message
	b.updatedAt = b.now()
}

func (b *Board) ReportProgress(percent int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = clampPercent(percent)
	b.updatedAt = b.now()
}

// NoteActivity records the latest change hint.
func (b *Board) NoteActivity(event ActivityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activity = &event
}

// Snapshot returns a copy of the current board state.
func (b *Board) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := BoardSnapshot{
		Message:   b.message,
		Progress:  b.progress,
		UpdatedAt: b.updatedAt,
	}
	if b.activity != nil {
		activity := *b.activity
		snap.Activity = &activity
	}
	return snap
}

func clampPercent(p int) int {
	return max(0, min(100, p))
}
