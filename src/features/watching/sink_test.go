package watching

import (
	"testing"
	"time"
)

func TestBoard_ReportAndSnapshot(t *testing.T) {
	board := NewBoard()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	board.now = func() time.Time { return fixed }

	if snap := board.Snapshot(); snap.Message != "Idle" || snap.Progress != 0 {
		t.Errorf("expected fresh board to be Idle at 0%%, got %+v", snap)
	}

	board.Report("Watching directory")
	board.ReportProgress(140)
	snap := board.Snapshot()
	if snap.Message != "Watching directory" {
		t.Errorf("unexpected message %q", snap.Message)
	}
	if snap.Progress != 100 {
		t.Errorf("expected progress clamped to 100, got %d", snap.Progress)
	}
	if !snap.UpdatedAt.Equal(fixed) {
		t.Errorf("expected updatedAt %v, got %v", fixed, snap.UpdatedAt)
	}

	board.ReportProgress(-3)
	if p := board.Snapshot().Progress; p != 0 {
		t.Errorf("expected progress clamped to 0, got %d", p)
	}
}

func TestBoard_SnapshotCopiesActivity(t *testing.T) {
	board := NewBoard()
	board.NoteActivity(ActivityEvent{Path: "/srv/drop/a.csv", Timestamp: time.Now()})

	snap := board.Snapshot()
	if snap.Activity == nil || snap.Activity.Path != "/srv/drop/a.csv" {
		t.Fatalf("expected activity in snapshot, got %+v", snap.Activity)
	}
	snap.Activity.Path = "changed"
	if board.Snapshot().Activity.Path != "/srv/drop/a.csv" {
		t.Error("snapshot must not alias board state")
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := MultiSink{a, b}
	sink.Report("Idle")
	sink.ReportProgress(20)

	for _, r := range []*recordingSink{a, b} {
		if msgs := r.allMessages(); len(msgs) != 1 || msgs[0] != "Idle" {
			t.Errorf("unexpected messages %v", msgs)
		}
		if r.lastProgress() != 20 {
			t.Errorf("unexpected progress %d", r.lastProgress())
		}
	}
}
