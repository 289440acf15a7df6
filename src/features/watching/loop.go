package watching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Tick is the sleep granularity of the loop and the only point where a stop is observed.
const Tick = time.Second

// DefaultStopGrace is added to Tick when Stop waits for the loop goroutine.
const DefaultStopGrace = 250 * time.Millisecond

var (
	ErrAlreadyRunning  = errors.New("watch is already running")
	ErrNotRunning      = errors.New("watch is not running")
	ErrInvalidInterval = errors.New("scan interval must be a positive number of seconds")
)

// RunState is the lifecycle state of a Loop.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Settings are fixed for the lifetime of one watch session.
type Settings struct {
	Directory string   `json:"directory"`
	Suffixes  []string `json:"suffixes"`
	Interval  int      `json:"interval"` // seconds
	Recipient string   `json:"recipient"`
	Sender    string   `json:"sender"`
}

// Loop periodically scans a directory and dispatches newly appeared files.
type Loop struct {
	settings   Settings
	tracker    *Tracker
	dispatcher Dispatcher
	sink       StatusSink
	observer   Observer
	clock      clockwork.Clock
	grace      time.Duration

	mu    sync.Mutex // serializes Start and Stop
	state atomic.Int32
	stop  chan struct{}
	done  chan struct{}
}

// LoopOption configures optional Loop collaborators.
type LoopOption func(*Loop)

// WithClock replaces the wall clock used for ticks.
func WithClock(clock clockwork.Clock) LoopOption {
	return func(l *Loop) { l.clock = clock }
}

// WithObserver registers an observer for scan and dispatch events.
func WithObserver(observer Observer) LoopOption {
	return func(l *Loop) { l.observer = observer }
}

// WithStopGrace sets how long past one tick Stop waits for the goroutine to exit.
func WithStopGrace(grace time.Duration) LoopOption {
	return func(l *Loop) { l.grace = grace }
}

// NewLoop creates an idle loop.
func NewLoop(settings Settings, tracker *Tracker, dispatcher Dispatcher, sink StatusSink, opts ...LoopOption) *Loop {
	l := &Loop{
		settings:   settings,
		tracker:    tracker,
		dispatcher: dispatcher,
		sink:       sink,
		observer:   nopObserver{},
		clock:      clockwork.NewRealClock(),
		grace:      DefaultStopGrace,
	}
	if l.sink == nil {
		l.sink = MultiSink{}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() RunState {
	return RunState(l.state.Load())
}

// Settings returns the session settings.
func (l *Loop) Settings() Settings {
	return l.settings
}

// Done is closed when the goroutine of the current session has exited.
// It is nil before the first Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Start builds a fresh SeenSet from the directory and launches the loop goroutine.
// ctx bounds the whole session and is handed to the dispatcher.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case StateRunning, StateStopping:
		return ErrAlreadyRunning
	case StateStopped:
		// the goroutine stores Stopped right before closing done
		<-l.done
	}
	if l.settings.Interval <= 0 {
		return ErrInvalidInterval
	}

	seen, err := l.tracker.Initialize(l.settings.Directory)
	if err != nil {
		return err
	}

	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.setState(StateRunning)
	slog.Info("Watch started", "directory", l.settings.Directory, "interval", l.settings.Interval, "baseline", len(seen))

	go l.run(ctx, seen, l.stop, l.done)
	return nil
}

// Stop asks a running loop to exit at the next tick and waits up to one tick plus
// the grace period for it. The loop may still be finishing a dispatch when Stop returns.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.observer.ObserveState(StateStopping)
	close(l.stop)
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
	case <-time.After(Tick + l.grace):
		slog.Warn("Watch loop still busy after stop request", "directory", l.settings.Directory)
	}
	return nil
}

func (l *Loop) setState(state RunState) {
	l.state.Store(int32(state))
	l.observer.ObserveState(state)
}

func (l *Loop) run(ctx context.Context, seen SeenSet, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		l.setState(StateStopped)
		slog.Info("Watch stopped", "directory", l.settings.Directory)
		close(done)
	}()

	for {
		if !l.waitInterval(ctx, stop) {
			return
		}
		l.scan(ctx, seen)
	}
}

// waitInterval sleeps tick by tick for one interval, reporting progress after each tick.
// It returns false when the session was stopped before the interval completed.
func (l *Loop) waitInterval(ctx context.Context, stop <-chan struct{}) bool {
	l.reportProgress(0)
	for elapsed := 1; elapsed <= l.settings.Interval; elapsed++ {
		select {
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		case <-l.clock.After(Tick):
		}
		if l.State() != StateRunning {
			return false
		}
		l.reportProgress(Progress(elapsed, l.settings.Interval))
	}
	return true
}

// scan runs detect, dispatch and commit for one completed interval.
func (l *Loop) scan(ctx context.Context, seen SeenSet) {
	found := l.tracker.DetectNew(l.settings.Directory, seen, l.settings.Suffixes)
	l.observer.ObserveScan(len(found))
	if len(found) == 0 {
		return
	}

	names := make([]string, len(found))
	paths := make([]string, len(found))
	for i, d := range found {
		names[i] = d.Name
		paths[i] = d.Path
	}

	l.report(fmt.Sprintf("New file(s) detected: %s, sending email", strings.Join(names, ", ")))
	err := l.dispatcher.Dispatch(ctx, paths, l.settings.Recipient, l.settings.Sender)
	if err != nil {
		err = &DispatchFailedError{Files: names, Reason: err}
		slog.Error("Failed to send new files, marking them as seen anyway", "error", err)
	} else {
		slog.Info("New files sent", "files", names, "recipient", l.settings.Recipient)
	}
	l.observer.ObserveDispatch(len(paths), err)

	l.tracker.Commit(seen, names)
	l.report("Idle")
}

// Progress is the elapsed share of an interval in percent, clamped to [0, 100].
func Progress(elapsed, interval int) int {
	if interval <= 0 {
		return 100
	}
	return clampPercent(100 * elapsed / interval)
}

func (l *Loop) report(message string) {
	defer l.recoverSink("report")
	l.sink.Report(message)
}

func (l *Loop) reportProgress(percent int) {
	defer l.recoverSink("progress")
	l.sink.ReportProgress(percent)
}

func (l *Loop) recoverSink(call string) {
	if r := recover(); r != nil {
		slog.Error("Status sink failed", "call", call, "panic", r)
	}
}
