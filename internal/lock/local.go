package lock

import (
	"context"
	"sync"
	"time"
)

// LocalManager serializes resources within a single process using
// one token channel per key. It is the fallback when Redis is not
// configured and the manager tests substitute for the Redis one. A
// single-instance deployment gets the full correctness guarantees
// from it; multi-instance deployments need the Redis manager.
type LocalManager struct {
	opts Options

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalManager returns a LocalManager with the given options.
func NewLocalManager(opts Options) *LocalManager {
	return &LocalManager{
		opts:  opts.withDefaults(),
		slots: make(map[string]chan struct{}),
	}
}

// slot returns the token channel for a key, creating it on first
// use. A buffered channel of size one acts as a mutex that supports
// bounded waits via select.
func (m *LocalManager) slot(k string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[k]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[k] = ch
	}
	return ch
}

// Acquire implements Manager. It blocks until the resource token is
// obtained, the wait bound elapses (ErrTimeout) or ctx is cancelled.
func (m *LocalManager) Acquire(ctx context.Context, resourceType, resourceID string) (func(), error) {
	ch := m.slot(key(resourceType, resourceID))
	timer := time.NewTimer(m.opts.WaitTimeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
