// Package fsutil is the single central helper spec.md §9 calls for in
// place of ad-hoc read-then-write code paths: "lock → read → write-temp →
// rename → unlock", shared by CronAdapter, EquipmentStatusStore and the
// heating-cycle record store. No library in the example corpus wraps
// advisory file locking; golang.org/x/sys/unix is already a transitive
// dependency of the corpus's networking stack, so it is the narrowest
// addition rather than a hand-rolled syscall wrapper.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is a held advisory lock (flock(2), LOCK_EX) over a sentinel file.
// The sentinel need not be the file being protected — CronAdapter locks a
// path outside the crontab itself since the crontab has no stable fd.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if necessary) the sentinel at path and blocks
// until an exclusive lock is held.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock sentinel %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the sentinel file descriptor.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	if err != nil {
		return fmt.Errorf("unflock: %w", err)
	}
	return closeErr
}
