package watching

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/jonboulle/clockwork"
)

type mockActivity struct {
	events  chan<- ActivityEvent
	started string
	stopped bool
}

func (m *mockActivity) Start(ctx context.Context, watchPath string) error {
	m.started = watchPath
	m.events <- ActivityEvent{Path: watchPath + "/a.csv", Timestamp: time.Now()}
	return nil
}

func (m *mockActivity) Stop() { m.stopped = true }

// brokenActivity fails to start, like fsnotify refusing to add a path.
type brokenActivity struct {
	stopped bool
}

func (b *brokenActivity) Start(ctx context.Context, watchPath string) error {
	return errors.New("too many open files")
}

func (b *brokenActivity) Stop() { b.stopped = true }

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *config.Manager, *clockwork.FakeClock) {
	t.Helper()
	manager := config.NewManager(&config.Config{
		Watch: config.Watch{
			Interval: "1min",
			Suffixes: []string{".csv"},
			Activity: true,
		},
	})
	clock := clockwork.NewFakeClock()
	opts = append([]ServiceOption{WithServiceClock(clock)}, opts...)
	return NewService(manager, &mockDispatcher{}, opts...), manager, clock
}

func validRequest(dir string) Request {
	return Request{
		Directory: dir,
		Recipient: "ops@example.com",
		Sender:    "robot@example.com",
		Interval:  "10s",
		Suffixes:  []string{"csv", " .txt "},
	}
}

func TestService_StartRequiresAllFields(t *testing.T) {
	service, _, _ := newTestService(t)
	req := validRequest(t.TempDir())
	req.Recipient = ""

	if err := service.Start(req); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if msg := service.Board().Snapshot().Message; msg != "Please fill in all fields" {
		t.Errorf("expected board to ask for all fields, got %q", msg)
	}
	if service.Status().State != "idle" {
		t.Errorf("expected idle, got %s", service.Status().State)
	}
}

func TestService_StartRejectsBadInterval(t *testing.T) {
	service, _, _ := newTestService(t)
	req := validRequest(t.TempDir())
	req.Interval = "0min"
	if err := service.Start(req); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestService_StartPauseRestart(t *testing.T) {
	service, manager, _ := newTestService(t)
	dir := t.TempDir()

	if err := service.Start(validRequest(dir)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	status := service.Status()
	if !status.Running || status.Session == nil {
		t.Fatalf("expected a running session, got %+v", status)
	}
	if status.Session.Settings.Interval != 10 {
		t.Errorf("expected 10 second interval, got %d", status.Session.Settings.Interval)
	}
	if got := status.Session.Settings.Suffixes; len(got) != 2 || got[0] != ".csv" || got[1] != ".txt" {
		t.Errorf("expected normalised suffixes, got %v", got)
	}
	if status.Board.Message != "Watching directory" {
		t.Errorf("unexpected board message %q", status.Board.Message)
	}
	if manager.Get().Watch.Directory != dir || manager.Get().Watch.Interval != "10s" {
		t.Errorf("expected request to become the new defaults, got %+v", manager.Get().Watch)
	}

	if err := service.Start(validRequest(dir)); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	first := status.Session.ID
	if err := service.Pause(); err != nil {
		t.Fatalf("expected no error on pause, got %v", err)
	}
	if st := service.Status(); st.Running || st.Board.Message != "Idle" {
		t.Errorf("expected paused and Idle, got %+v", st)
	}
	if err := service.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning on second pause, got %v", err)
	}

	if err := service.Start(validRequest(dir)); err != nil {
		t.Fatalf("expected restart to succeed, got %v", err)
	}
	if st := service.Status(); st.Session.ID == first {
		t.Error("expected a new session id after restart")
	}
	service.Close()
}

func TestService_PauseWithoutSession(t *testing.T) {
	service, _, _ := newTestService(t)
	if err := service.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestService_ActivityHintReachesBoard(t *testing.T) {
	activity := &mockActivity{}
	factory := func(events chan<- ActivityEvent, suffixes []string) (ActivityWatcher, error) {
		activity.events = events
		return activity, nil
	}
	service, _, _ := newTestService(t, WithActivity(factory))
	dir := t.TempDir()
	if err := service.Start(validRequest(dir)); err != nil {
		t.Fatal(err)
	}
	if activity.started != dir {
		t.Errorf("expected activity watcher on %s, got %q", dir, activity.started)
	}

	deadline := time.Now().Add(2 * time.Second)
	for service.Board().Snapshot().Activity == nil {
		if time.Now().After(deadline) {
			t.Fatal("activity never reached the board")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := service.Pause(); err != nil {
		t.Fatal(err)
	}
	if !activity.stopped {
		t.Error("expected activity watcher to stop with the session")
	}
}

func TestService_AutoStart(t *testing.T) {
	service, manager, _ := newTestService(t)
	if err := service.AutoStart(); err != nil {
		t.Fatalf("expected no-op without auto_start, got %v", err)
	}
	if service.Status().Running {
		t.Fatal("expected no session without auto_start")
	}

	watch := manager.Get().Watch
	watch.AutoStart = true
	watch.Directory = t.TempDir()
	watch.Recipient = "ops@example.com"
	watch.Sender = "robot@example.com"
	manager.UpdateWatch(watch)

	if err := service.AutoStart(); err != nil {
		t.Fatalf("expected auto start, got %v", err)
	}
	if !service.Status().Running {
		t.Error("expected a running session")
	}
	service.Close()
}

func TestService_StartRejectsNonEmailAddresses(t *testing.T) {
	service, manager, _ := newTestService(t)
	req := validRequest(t.TempDir())
	req.Sender = "robot"

	if err := service.Start(req); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if service.Status().Running {
		t.Error("expected no session for an invalid sender")
	}
	if manager.Get().Watch.Sender != "" {
		t.Errorf("expected rejected request not to be remembered, got %q", manager.Get().Watch.Sender)
	}
}

func TestService_AcceptedRequestSurvivesReload(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.yaml")
	body := "database:\n  path: " + filepath.Join(base, "history.db") + "\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	manager, err := config.Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	service := NewService(manager, &mockDispatcher{}, WithServiceClock(clockwork.NewFakeClock()))
	defer service.Close()

	dir := t.TempDir()
	req := validRequest(dir)
	req.Sender = " robot@example.com "
	if err := service.Start(req); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	reloaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("expected saved config to load again, got %v", err)
	}
	watch := reloaded.Get().Watch
	if watch.Directory != dir || watch.Sender != "robot@example.com" || watch.Interval != "10s" {
		t.Errorf("unexpected saved watch section %+v", watch)
	}
}

func TestService_FailedActivityWatcherIsStopped(t *testing.T) {
	broken := &brokenActivity{}
	factory := func(events chan<- ActivityEvent, suffixes []string) (ActivityWatcher, error) {
		return broken, nil
	}
	service, _, _ := newTestService(t, WithActivity(factory))
	defer service.Close()

	if err := service.Start(validRequest(t.TempDir())); err != nil {
		t.Fatalf("expected the watch to start without the hint, got %v", err)
	}
	if !broken.stopped {
		t.Error("expected the watcher that failed to start to be stopped")
	}
}

func TestService_StatusAnswersWhilePauseWaits(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dispatcher := &mockDispatcher{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	manager := config.NewManager(&config.Config{Watch: config.Watch{Suffixes: []string{".csv"}}})
	service := NewService(manager, dispatcher, WithServiceClock(clock))
	defer service.Close()

	dir := t.TempDir()
	if err := service.Start(validRequest(dir)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 10; i++ {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("loop never slept: %v", err)
		}
		if i == 0 {
			touch(t, dir, "new.csv")
		}
		clock.Advance(Tick)
	}
	<-dispatcher.entered

	paused := make(chan error, 1)
	go func() { paused <- service.Pause() }()

	deadline := time.Now().Add(time.Second)
	for service.Status().State != "stopping" {
		if time.Now().After(deadline) {
			t.Fatal("session never reported stopping")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-paused:
		t.Fatal("expected Status to answer before Pause finished waiting")
	default:
	}

	close(dispatcher.release)
	if err := <-paused; err != nil {
		t.Errorf("expected pause to succeed, got %v", err)
	}
}
