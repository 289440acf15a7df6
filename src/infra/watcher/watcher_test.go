package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/mailwatch/src/features/watching"
)

func TestWatcher_EmitsDebouncedActivity(t *testing.T) {
	dir := t.TempDir()
	events := make(chan watching.ActivityEvent, 4)
	w, err := NewWatcher(events, []string{".csv"})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	if err := w.Start(context.Background(), dir); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "report.csv")
	if err := os.WriteFile(want, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Path != want {
			t.Errorf("expected activity for %s, got %s", want, ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no activity event emitted")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(make(chan watching.ActivityEvent, 1), []string{".csv"})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := NewWatcher(make(chan watching.ActivityEvent, 1), []string{".csv"})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
