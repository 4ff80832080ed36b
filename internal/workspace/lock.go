package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("schema is being edited by another process")

// Lock is an exclusive, non-blocking file lock.
type Lock struct {
	lock *flock.Flock
}

// Acquire takes the lock at path, creating its directory if needed.
// It returns ErrLocked immediately when another process holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &Lock{lock: l}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.lock.Path()
}

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
