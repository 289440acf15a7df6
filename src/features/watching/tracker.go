package watching

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrDirectoryUnavailable is returned when the watched directory can't be listed at session start.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// TransientListingError describes a listing failure in the middle of a session.
// It never leaves the tracker; the scan is reported as empty instead.
type TransientListingError struct {
	Directory string
	Err       error
}

func (e *TransientListingError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.Directory, e.Err)
}

func (e *TransientListingError) Unwrap() error { return e.Err }

// SeenSet holds the basenames already known for a session.
type SeenSet map[string]struct{}

// Has reports whether name was already seen.
func (s SeenSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Detected is a file that appeared since the baseline and matches the suffix filter.
type Detected struct {
	Name string // basename
	Path string // directory joined with Name
}

// Tracker decides which entries of a directory are new relative to a SeenSet.
type Tracker struct {
	readDir func(name string) ([]fs.DirEntry, error)
}

// NewTracker creates a tracker that lists directories with os.ReadDir.
func NewTracker() *Tracker {
	return &Tracker{readDir: os.ReadDir}
}

// Initialize lists directory and records every entry, whatever its suffix, as seen.
func (t *Tracker) Initialize(directory string) (SeenSet, error) {
	entries, err := t.readDir(directory)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, directory, err)
	}
	seen := make(SeenSet, len(entries))
	for _, entry := range entries {
		seen[entry.Name()] = struct{}{}
	}
	return seen, nil
}

// DetectNew returns, in listing order, the unseen entries whose name ends with one of suffixes.
// seen is not modified.
func (t *Tracker) DetectNew(directory string, seen SeenSet, suffixes []string) []Detected {
	entries, err := t.readDir(directory)
	if err != nil {
		slog.Warn("Skipping scan, directory not readable", "error", &TransientListingError{Directory: directory, Err: err})
		return nil
	}
	var found []Detected
	for _, entry := range entries {
		name := entry.Name()
		if seen.Has(name) || !hasSuffix(name, suffixes) {
			continue
		}
		found = append(found, Detected{Name: name, Path: filepath.Join(directory, name)})
	}
	return found
}

// Commit marks names as seen. Committing a name twice is a no-op.
func (t *Tracker) Commit(seen SeenSet, names []string) {
	for _, name := range names {
		seen[name] = struct{}{}
	}
}

func hasSuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
