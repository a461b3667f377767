//go:build !windows

package dirstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// ErrStoreBusy is returned when the store lock cannot be acquired within the
// acquisition bound. Callers retry with backoff instead of blocking.
var ErrStoreBusy = errors.New("store busy")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const (
	lockAcquireBound = 2 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

// FileLock is an advisory lock backed by flock(2). The flock guards against
// other processes; the mutex serializes holders inside this process, since
// flock is per file handle and goroutines share one FileLock. It is held
// only around store reads/writes, never across a model call.
type FileLock struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

// NewFileLock creates a lock for the given path. The lock file itself is
// created on first acquisition.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire takes the lock, polling non-blocking until the acquisition bound
// elapses. Returns ErrStoreBusy on timeout, whether the holder is another
// goroutine or another process.
func (l *FileLock) Acquire() error {
	deadline := time.Now().Add(lockAcquireBound)
	for !l.mu.TryLock() {
		if time.Now().After(deadline) {
			return fmt.Errorf("lock %s: %w", l.path, ErrStoreBusy)
		}
		time.Sleep(lockPollInterval)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.f = f
			return nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = f.Close()
			l.mu.Unlock()
			return fmt.Errorf("flock %s: %w", l.path, err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			l.mu.Unlock()
			return fmt.Errorf("lock %s: %w", l.path, ErrStoreBusy)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release drops the lock. Must pair with a successful Acquire.
func (l *FileLock) Release() {
	if l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
	l.mu.Unlock()
}
