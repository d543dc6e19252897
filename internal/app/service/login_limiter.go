package service

import (
	"context"
	"sync"
	"time"
)

// LoginLimiter throttles login attempts for one key (the username).
type LoginLimiter interface {
	// Reserve atomically counts one attempt and reports whether it may
	// proceed.
	Reserve(ctx context.Context, key string) (bool, error)
	// Reset clears the key after a successful login.
	Reset(ctx context.Context, key string) error
}

// MemoryLoginLimiter is a per-process sliding window, used when no Redis is
// configured.
type MemoryLoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	window      time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewMemoryLoginLimiter(maxAttempts int, window time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		attempts:    make(map[string][]time.Time),
		window:      window,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (l *MemoryLoginLimiter) Reserve(_ context.Context, key string) (bool, error) {
	if l.maxAttempts <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.prune(key)
	if len(valid) >= l.maxAttempts {
		return false, nil
	}
	l.attempts[key] = append(valid, l.now())
	return true, nil
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.attempts, key)
	return nil
}

// prune drops attempts older than the window. Caller holds mu.
func (l *MemoryLoginLimiter) prune(key string) []time.Time {
	now := l.now()
	var valid []time.Time
	for _, t := range l.attempts[key] {
		if now.Sub(t) < l.window {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = valid
	return valid
}
