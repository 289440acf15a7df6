package watcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/contre95/mailwatch/src/features/watching"
	"github.com/fsnotify/fsnotify"
)

const DEBOUNCE_MILLIS = 500

// Watcher notices matching files appearing in the watched directory and emits
// one activity event per burst of changes. It never decides what gets mailed.
type Watcher struct {
	watcher       *fsnotify.Watcher
	watchPath     string
	suffixes      []string
	debounce      time.Duration
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	lastPath      string
	stopOnce      sync.Once
	stopChan      chan struct{}
	eventChan     chan<- watching.ActivityEvent
}

// NewWatcher creates a new file system watcher
func NewWatcher(eventChan chan<- watching.ActivityEvent, suffixes []string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:   watcher,
		suffixes:  suffixes,
		debounce:  DEBOUNCE_MILLIS * time.Millisecond,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}, nil
}

// NewActivityFactory adapts NewWatcher to the watching service.
func NewActivityFactory() watching.ActivityFactory {
	return func(events chan<- watching.ActivityEvent, suffixes []string) (watching.ActivityWatcher, error) {
		return NewWatcher(events, suffixes)
	}
}

// Start begins watching the directory for file changes
func (w *Watcher) Start(ctx context.Context, watchPath string) error {
	w.watchPath = watchPath
	slog.Debug("Starting activity watcher", "path", watchPath)

	if err := w.watcher.Add(watchPath); err != nil {
		return err
	}

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		slog.Debug("Stopping activity watcher", "path", w.watchPath)
		close(w.stopChan)

		w.debounceMutex.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
			w.debounceTimer = nil
		}
		w.debounceMutex.Unlock()

		w.watcher.Close()
	})
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Activity watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	slog.Debug("Directory activity", "file", event.Name, "op", event.Op.String())

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	w.lastPath = event.Name
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.emitDebounceEvent)
}

// matches applies the same case-sensitive suffix filter as the scans.
func (w *Watcher) matches(filePath string) bool {
	for _, suffix := range w.suffixes {
		if strings.HasSuffix(filePath, suffix) {
			return true
		}
	}
	return false
}

// emitDebounceEvent emits the latest changed file after the debounce period
func (w *Watcher) emitDebounceEvent() {
	w.debounceMutex.Lock()
	path := w.lastPath
	w.debounceMutex.Unlock()

	event := watching.ActivityEvent{
		Path:      path,
		Timestamp: time.Now(),
	}

	select {
	case w.eventChan <- event:
		slog.Debug("Emitted activity event after debounce", "path", event.Path)
	default:
		slog.Warn("Event channel full, dropping activity event", "path", event.Path)
	}
}
