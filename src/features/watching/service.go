package watching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingFields is returned when a start request lacks one of the required fields.
	ErrMissingFields = errors.New("please fill in all fields")
	// ErrInvalidAddress is returned when the recipient or sender is not an email address.
	ErrInvalidAddress = errors.New("recipient and sender must be email addresses")
)

// ActivityWatcher notices filesystem changes between scans. It only feeds the board.
type ActivityWatcher interface {
	Start(ctx context.Context, watchPath string) error
	Stop()
}

// ActivityFactory builds an ActivityWatcher that emits on events.
type ActivityFactory func(events chan<- ActivityEvent, suffixes []string) (ActivityWatcher, error)

// Request is what a control surface submits to start watching.
type Request struct {
	Directory string   `json:"directory" validate:"required"`
	Recipient string   `json:"recipient" validate:"required,email"`
	Sender    string   `json:"sender" validate:"required,email"`
	Interval  string   `json:"interval" validate:"required"`
	Suffixes  []string `json:"suffixes"`
}

// Session describes the current or last watch session.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Settings  Settings  `json:"settings"`
}

// Status is a snapshot for the panel and the bot.
type Status struct {
	State    string        `json:"state"`
	Running  bool          `json:"running"`
	Board    BoardSnapshot `json:"board"`
	Session  *Session      `json:"session,omitempty"`
	Interval string        `json:"interval"`
}

// Service is the control surface around a Loop. It validates requests, owns the
// current session and enforces that a new loop only starts once the previous one exited.
type Service struct {
	config     *config.Manager
	tracker    *Tracker
	dispatcher Dispatcher
	board      *Board
	sinks      MultiSink
	observer   Observer
	clock      clockwork.Clock
	activity   ActivityFactory
	validate   *validator.Validate

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	loop         *Loop
	session      *Session
	intervalText string
	watcher      ActivityWatcher
	watcherDone  chan struct{}
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithSink adds a sink next to the board.
func WithSink(sink StatusSink) ServiceOption {
	return func(s *Service) { s.sinks = append(s.sinks, sink) }
}

// WithServiceObserver sets the observer handed to every loop.
func WithServiceObserver(observer Observer) ServiceOption {
	return func(s *Service) { s.observer = observer }
}

// WithServiceClock sets the clock handed to every loop.
func WithServiceClock(clock clockwork.Clock) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithActivity enables the filesystem change hint.
func WithActivity(factory ActivityFactory) ServiceOption {
	return func(s *Service) { s.activity = factory }
}

// NewService creates a new watching service.
func NewService(cfg *config.Manager, dispatcher Dispatcher, opts ...ServiceOption) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		config:     cfg,
		tracker:    NewTracker(),
		dispatcher: dispatcher,
		board:      NewBoard(),
		observer:   nopObserver{},
		clock:      clockwork.NewRealClock(),
		validate:   validator.New(),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.sinks = MultiSink{s.board}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Board returns the board the loops report to.
func (s *Service) Board() *Board {
	return s.board
}

// RequestFromConfig builds a start request out of the configured watch section.
func (s *Service) RequestFromConfig() Request {
	w := s.config.Get().Watch
	return Request{
		Directory: w.Directory,
		Recipient: w.Recipient,
		Sender:    w.Sender,
		Interval:  w.Interval,
		Suffixes:  w.Suffixes,
	}
}

// Start validates req and starts a new session. It returns ErrMissingFields,
// ErrInvalidAddress, ErrInvalidInterval, ErrDirectoryUnavailable or ErrAlreadyRunning.
func (s *Service) Start(req Request) error {
	req.Directory = strings.TrimSpace(req.Directory)
	req.Recipient = strings.TrimSpace(req.Recipient)
	req.Sender = strings.TrimSpace(req.Sender)
	if err := s.check(req); err != nil {
		return err
	}
	seconds, err := ParseInterval(req.Interval)
	if err != nil {
		return err
	}
	suffixes := cleanSuffixes(req.Suffixes)
	if len(suffixes) == 0 {
		suffixes = cleanSuffixes(s.config.Get().Watch.Suffixes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.joinPrevious(); err != nil {
		return err
	}

	settings := Settings{
		Directory: req.Directory,
		Suffixes:  suffixes,
		Interval:  seconds,
		Recipient: req.Recipient,
		Sender:    req.Sender,
	}
	id := uuid.New().String()
	loop := NewLoop(settings, s.tracker, s.dispatcher, s.sinks, WithClock(s.clock), WithObserver(s.observer))
	if err := loop.Start(WithSession(s.ctx, id)); err != nil {
		slog.Warn("Could not start watch", "directory", settings.Directory, "error", err)
		return err
	}

	s.loop = loop
	s.intervalText = req.Interval
	s.session = &Session{ID: id, StartedAt: s.clock.Now(), Settings: settings}
	s.board.Report("Watching directory")
	s.startActivity(settings)
	s.remember(req, suffixes)

	slog.Info("Watch session started", "session", s.session.ID, "directory", settings.Directory, "recipient", settings.Recipient)
	return nil
}

// check applies the request tags. The addresses follow the same email rule the
// config file is validated with, so an accepted request can always be saved and reloaded.
func (s *Service) check(req Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				s.board.Report("Please fill in all fields")
				return ErrMissingFields
			}
		}
		s.board.Report("Invalid email address")
		return fmt.Errorf("%w: %s", ErrInvalidAddress, fieldErrs[0].Field())
	}
	return err
}

// joinPrevious makes sure no earlier loop goroutine is still alive. A loop that is
// still stopping gets one more tick to finish before the start is refused.
func (s *Service) joinPrevious() error {
	if s.loop == nil {
		return nil
	}
	switch s.loop.State() {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStopping:
		select {
		case <-s.loop.Done():
		case <-time.After(Tick + DefaultStopGrace):
			return fmt.Errorf("%w: previous session is still stopping", ErrAlreadyRunning)
		}
	}
	<-s.loop.Done()
	return nil
}

// Pause stops the current session and waits, bounded, for its loop to exit.
// The lock is not held during the wait so Status stays responsive.
func (s *Service) Pause() error {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()

	if loop == nil {
		return ErrNotRunning
	}
	if err := loop.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != loop {
		// a new session started while this one was stopping
		return nil
	}
	s.stopActivity()
	s.board.Report("Idle")
	s.board.ReportProgress(0)
	slog.Info("Watch session paused", "session", s.session.ID)
	return nil
}

// Status returns a snapshot of the current session.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	if s.loop != nil {
		state = s.loop.State()
	}
	status := Status{
		State:    state.String(),
		Running:  state == StateRunning,
		Board:    s.board.Snapshot(),
		Interval: s.intervalText,
	}
	if s.session != nil {
		session := *s.session
		status.Session = &session
	}
	return status
}

// Close pauses any running session and cancels in-flight dispatches.
func (s *Service) Close() {
	if err := s.Pause(); err != nil && !errors.Is(err, ErrNotRunning) {
		slog.Warn("Failed to pause watch on close", "error", err)
	}
	s.cancel()
}

// AutoStart starts a session from config when watch.auto_start is set.
func (s *Service) AutoStart() error {
	if !s.config.Get().Watch.AutoStart {
		return nil
	}
	return s.Start(s.RequestFromConfig())
}

// remember stores the accepted request as the new watch defaults.
func (s *Service) remember(req Request, suffixes []string) {
	watch := s.config.Get().Watch
	watch.Directory = req.Directory
	watch.Recipient = req.Recipient
	watch.Sender = req.Sender
	watch.Interval = req.Interval
	watch.Suffixes = suffixes
	s.config.UpdateWatch(watch)
	if path := s.config.Path(); path != "" {
		if err := s.config.Save(path); err != nil {
			slog.Warn("Failed to persist watch settings", "error", err)
		}
	}
}

func (s *Service) startActivity(settings Settings) {
	s.stopActivity()
	if s.activity == nil || !s.config.Get().Watch.Activity {
		return
	}
	events := make(chan ActivityEvent, 16)
	watcher, err := s.activity(events, settings.Suffixes)
	if err != nil {
		slog.Warn("Activity watcher unavailable", "error", err)
		return
	}
	if err := watcher.Start(s.ctx, settings.Directory); err != nil {
		slog.Warn("Activity watcher failed to start", "directory", settings.Directory, "error", err)
		watcher.Stop()
		return
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev := <-events:
				s.board.NoteActivity(ev)
			case <-done:
				return
			}
		}
	}()
	s.watcher = watcher
	s.watcherDone = done
}

func (s *Service) stopActivity() {
	if s.watcher == nil {
		return
	}
	s.watcher.Stop()
	close(s.watcherDone)
	s.watcher = nil
	s.watcherDone = nil
}

func cleanSuffixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, suffix := range in {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		out = append(out, suffix)
	}
	return out
}
