package submit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rshade/mesgrid/internal/config"
)

// staleSubmitLock is how old a submit lockfile must be before a dead owner's
// lock may be replaced.
const staleSubmitLock = 2 * time.Second

// Guard tracks which keys have a submission in flight. Each held key also
// holds a lockfile, so separate processes see each other's submissions.
type Guard struct {
	mu       sync.Mutex
	active   map[string]struct{}
	lockPath func(key string) string
}

// NewGuard returns a guard that locks lockPath(key) on disk for each key.
func NewGuard(lockPath func(key string) string) *Guard {
	return &Guard{active: make(map[string]struct{}), lockPath: lockPath}
}

// TryAcquire marks key as in flight. The returned release func is idempotent.
// It returns ErrSubmitInProgress if key is already held here or by another
// live process.
func (g *Guard) TryAcquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[key]; held {
		return nil, ErrSubmitInProgress
	}

	unlock, err := config.TryLock(g.lockPath(key), staleSubmitLock)
	if errors.Is(err, config.ErrLocked) {
		return nil, fmt.Errorf("%w: %s is locked by another process", ErrSubmitInProgress, key)
	}
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", key, err)
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
			unlock()
		})
	}, nil
}
