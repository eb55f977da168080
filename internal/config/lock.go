package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// ErrLocked is returned by TryLock when a live process holds the lock.
var ErrLocked = errors.New("lock held by another process")

const (
	lockRetries    = 10
	lockRetryDelay = 100 * time.Millisecond
	staleLockAge   = 30 * time.Second
)

// TryLock creates lockPath exclusively and writes the current PID into it.
// A lock older than staleAge whose owner has exited is replaced. It returns
// ErrLocked when the lock is held. The release func is idempotent.
func TryLock(lockPath string, staleAge time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for range 2 {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			// PID is used for stale lock detection
			_, _ = fmt.Fprintf(f, "%d", os.Getpid())
			_ = f.Close()
			var once sync.Once
			return func() { once.Do(func() { _ = os.Remove(lockPath) }) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock %s: %w", lockPath, err)
		}
		if !removeStaleLock(lockPath, staleAge) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
}

// acquireLock waits for lockPath, retrying TryLock a bounded number of times.
func acquireLock(lockPath string) (func(), error) {
	for range lockRetries {
		unlock, err := TryLock(lockPath, staleLockAge)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, ErrLocked) {
			return nil, err
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, fmt.Errorf("could not acquire lock on %s after retries", lockPath)
}

// removeStaleLock removes lockPath if it is older than staleLockAge and its
// owner is gone. Returns true if the caller should retry.
func removeStaleLock(lockPath string, staleLockAge time.Duration) bool {
	info, statErr := os.Stat(lockPath)
	if statErr != nil || time.Since(info.ModTime()) <= staleLockAge {
		return false
	}

	if isLockHeldByLiveProcess(lockPath) {
		return false
	}

	_ = os.Remove(lockPath)
	return true
}

// isLockHeldByLiveProcess reads the PID from a lock file and checks if that
// process is still alive.
func isLockHeldByLiveProcess(lockPath string) bool {
	pidData, readErr := os.ReadFile(lockPath)
	if readErr != nil || len(pidData) == 0 {
		return false
	}
	var pid int
	if _, scanErr := fmt.Sscanf(string(pidData), "%d", &pid); scanErr != nil || pid <= 0 {
		return false
	}
	return processExists(pid) == nil
}

func processExists(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	// Signal 0 tests process existence without actually sending a signal
	return proc.Signal(syscall.Signal(0))
}

// SubmitLockPath returns the lockfile guarding submissions of gridName for
// the draft store at draftsPath.
func SubmitLockPath(draftsPath, gridName string) string {
	return fmt.Sprintf("%s.%s.submit.lock", draftsPath, gridName)
}
