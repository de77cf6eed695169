package memory

import (
	"context"
	"sync"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// LockManager implements domain.LockManager in-process. It mirrors the
// Redis lock's semantics: Acquire fails immediately with ErrLockHeld rather
// than blocking, and unlock is safe to call more than once.
type LockManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]struct{})}
}

// Acquire obtains the lock for key or returns domain.ErrLockHeld. The ttl is
// ignored; an in-process holder cannot crash without the process going with
// it.
func (lm *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, ok := lm.held[key]; ok {
		return nil, domain.ErrLockHeld
	}
	lm.held[key] = struct{}{}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			delete(lm.held, key)
		})
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
