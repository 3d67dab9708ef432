package lifecycle

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked means another runner holds the lock.
var ErrLocked = errors.New("another runner holds the lock")

// Lock is an acquired single-instance lock.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes an exclusive lock on path without blocking.
func AcquireLock(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lifecycle: lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lifecycle: lock %s: %w", path, ErrLocked)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
