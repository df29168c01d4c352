package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// ErrOutputLocked is returned when another process holds the lock on an output file.
var ErrOutputLocked = errors.New("output file is locked by another process")

// OutputLock manages an advisory file lock next to an output file.
type OutputLock struct {
	lock *flock.Flock
	path string
}

// NewOutputLock creates a lock for the given output path.
func NewOutputLock(outPath string) (*OutputLock, error) {
	absPath, err := filepath.Abs(outPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute output path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &OutputLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// TryLock acquires the lock without waiting. It returns ErrOutputLocked when
// somebody else holds it.
func (l *OutputLock) TryLock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		return ErrOutputLocked
	}
	return nil
}

// Unlock releases the lock and removes the lock file.
func (l *OutputLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	_ = os.Remove(l.path)
	return nil
}

// Path returns the lock file path.
func (l *OutputLock) Path() string {
	return l.path
}
