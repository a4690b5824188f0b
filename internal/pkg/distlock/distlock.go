package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Extend pushes the expiry out by the lock's TTL while it is still held.
	Extend(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory hands out locks by key. Importers take one lock per user so two
// concurrent imports cannot both pass the duplicate check; the scheduler takes
// one per tick so only one worker sends due newsletters.
type Factory interface {
	NewLock(key string, ttl time.Duration) DistLock
}

// NewFactory returns a Redis-backed factory when redisClient is non-nil and a
// process-local one otherwise (single-instance deployments and tests).
func NewFactory(redisClient *redis.Client) Factory {
	if redisClient != nil {
		return redisFactory{client: redisClient}
	}
	return &localFactory{held: make(map[string]time.Time)}
}

type redisFactory struct {
	client *redis.Client
}

func (f redisFactory) NewLock(key string, ttl time.Duration) DistLock {
	return NewRedisLock(f.client, key, ttl)
}

// Process-local lock for single-instance deployments.

type localFactory struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
}

func (f *localFactory) NewLock(key string, ttl time.Duration) DistLock {
	return &localLock{factory: f, key: key, ttl: ttl}
}

type localLock struct {
	factory *localFactory
	key     string
	ttl     time.Duration
	owned   bool
}

func (l *localLock) Acquire(_ context.Context) (bool, error) {
	l.factory.mu.Lock()
	defer l.factory.mu.Unlock()
	now := time.Now()
	if exp, ok := l.factory.held[l.key]; ok && now.Before(exp) {
		return false, nil
	}
	l.factory.held[l.key] = now.Add(l.ttl)
	l.owned = true
	return true, nil
}

func (l *localLock) Extend(_ context.Context) (bool, error) {
	l.factory.mu.Lock()
	defer l.factory.mu.Unlock()
	if !l.owned {
		return false, nil
	}
	if exp, ok := l.factory.held[l.key]; !ok || time.Now().After(exp) {
		l.owned = false
		return false, nil
	}
	l.factory.held[l.key] = time.Now().Add(l.ttl)
	return true, nil
}

func (l *localLock) Release(_ context.Context) error {
	l.factory.mu.Lock()
	defer l.factory.mu.Unlock()
	if l.owned {
		delete(l.factory.held, l.key)
		l.owned = false
	}
	return nil
}
