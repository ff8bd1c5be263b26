// Package joblock provides leases that keep two processes from running the
// same scheduler job at once.
package joblock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = errors.New("job lease held by another process")

// Locker hands out leases keyed by job identity. A lease expires after ttl
// even if never released, so a crashed holder cannot block forever.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]localEntry
	now    func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]localEntry), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.leases[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	l.leases[key] = localEntry{token: token, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
}

func (l *localLease) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if e, ok := l.locker.leases[l.key]; ok && e.token == l.token {
		delete(l.locker.leases, l.key)
	}
	return nil
}
