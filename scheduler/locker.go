package scheduler

import (
	"context"
	"sync"
	"time"
)

// Locker hands out leases keyed by job name. A lease that outlives its TTL
// may be taken over by another holder. repository.LeaseRepository is the
// postgres-backed implementation.
type Locker interface {
	Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
}

type lease struct {
	holder    string
	expiresAt time.Time
}

// MemoryLocker is a single-process Locker
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease)}
}

func (m *MemoryLocker) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && now.Before(l.expiresAt) {
		return false, nil
	}
	m.leases[name] = lease{holder: holder, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryLocker) Release(ctx context.Context, name, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[name]; ok && l.holder == holder {
		delete(m.leases, name)
	}
	return nil
}
