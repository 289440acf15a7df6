package watching

import (
	"context"
	"fmt"
	"strings"
)

// Dispatcher sends one notification for a batch of new files.
// The loop never calls it with an empty batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, paths []string, recipient, sender string) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, paths []string, recipient, sender string) error

func (f DispatcherFunc) Dispatch(ctx context.Context, paths []string, recipient, sender string) error {
	return f(ctx, paths, recipient, sender)
}

// DispatchFailedError wraps the reason a batch could not be sent.
type DispatchFailedError struct {
	Files  []string
	Reason error
}

func (e *DispatchFailedError) Error() string {
	return fmt.Sprintf("dispatch of %s failed: %v", strings.Join(e.Files, ", "), e.Reason)
}

func (e *DispatchFailedError) Unwrap() error { return e.Reason }

// Observer receives loop events, used for metrics.
type Observer interface {
	ObserveScan(detected int)
	ObserveDispatch(files int, err error)
	ObserveState(state RunState)
}

type nopObserver struct{}

func (nopObserver) ObserveScan(int)            {}
func (nopObserver) ObserveDispatch(int, error) {}
func (nopObserver) ObserveState(RunState)      {}

type sessionKey struct{}

// WithSession tags ctx with a watch session id. Dispatchers can read it back with SessionID.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id carried by ctx, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
