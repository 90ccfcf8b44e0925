package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ReentrantLock is a fair lock that its current owner may re-enter.
// Waiters are admitted in arrival order. Owners are compared by identity.
type ReentrantLock struct {
	name string
	sem  *semaphore.Weighted

	mu    sync.Mutex
	owner any
	holds int
}

// NewReentrantLock creates an unlocked lock
func NewReentrantLock(name string) *ReentrantLock {
	return &ReentrantLock{name: name, sem: semaphore.NewWeighted(lockWeight)}
}

// Name returns the registry name of the lock
func (l *ReentrantLock) Name() string {
	return l.name
}

// Lock acquires the lock for owner, waiting at most timeout.
// A non-positive timeout only succeeds if the lock is free or already owned.
func (l *ReentrantLock) Lock(ctx context.Context, owner any, timeout time.Duration) error {
	if owner == nil {
		return errors.New(ErrMsgMutexNilOwner)
	}

	l.mu.Lock()
	if l.holds > 0 && l.owner == owner {
		l.holds++
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	start := time.Now()
	if timeout <= 0 {
		if !l.sem.TryAcquire(lockWeight) {
			return NewMutexTimeoutError(l.name, timeout, 0)
		}
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := l.sem.Acquire(waitCtx, lockWeight)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s: %w", ErrMsgMutexAcquireAbort, ctx.Err())
			}
			return NewMutexTimeoutError(l.name, timeout, time.Since(start))
		}
	}

	l.mu.Lock()
	l.owner = owner
	l.holds = 1
	l.mu.Unlock()
	return nil
}

// Unlock releases one hold of owner. The lock is freed when the last hold is released.
func (l *ReentrantLock) Unlock(owner any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holds == 0 || l.owner != owner {
		return errors.New(ErrMsgMutexNotHeld)
	}
	l.holds--
	if l.holds == 0 {
		l.owner = nil
		l.sem.Release(lockWeight)
	}
	return nil
}

// HoldCount returns how many times the current owner has entered the lock
func (l *ReentrantLock) HoldCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holds
}

// IsHeldBy reports whether owner currently holds the lock
func (l *ReentrantLock) IsHeldBy(owner any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holds > 0 && l.owner == owner
}

// MutexRegistry is a process-wide table of named locks
type MutexRegistry struct {
	locks  cmap.ConcurrentMap[string, *ReentrantLock]
	logger *zap.Logger
}

// NewMutexRegistry creates an empty registry
func NewMutexRegistry(logger *zap.Logger) *MutexRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutexRegistry{locks: cmap.New[*ReentrantLock](), logger: logger}
}

var (
	defaultMutexRegistry     *MutexRegistry
	defaultMutexRegistryOnce sync.Once
)

// DefaultMutexRegistry returns the shared registry used when an engine has none of its own
func DefaultMutexRegistry() *MutexRegistry {
	defaultMutexRegistryOnce.Do(func() {
		defaultMutexRegistry = NewMutexRegistry(nil)
	})
	return defaultMutexRegistry
}

// GetOrCreate returns the lock for name, creating it if absent.
// Concurrent callers for the same name always receive the same lock.
func (r *MutexRegistry) GetOrCreate(name string) *ReentrantLock {
	if l, ok := r.locks.Get(name); ok {
		return l
	}
	return r.locks.Upsert(name, nil, func(exist bool, inMap, _ *ReentrantLock) *ReentrantLock {
		if exist {
			return inMap
		}
		r.logger.Debug(LogMsgMutexCreated, zap.String(LogFieldMutex, name))
		return NewReentrantLock(name)
	})
}

// Get returns the lock for name if it exists
func (r *MutexRegistry) Get(name string) (*ReentrantLock, bool) {
	return r.locks.Get(name)
}

// Names returns the names of all created locks
func (r *MutexRegistry) Names() []string {
	return r.locks.Keys()
}

// Count returns the number of created locks
func (r *MutexRegistry) Count() int {
	return r.locks.Count()
}

// MutexTimeoutError reports a mutex that could not be entered in time
type MutexTimeoutError struct {
	Name    string
	Timeout time.Duration
	Waited  time.Duration
}

// NewMutexTimeoutError creates a new mutex timeout error
func NewMutexTimeoutError(name string, timeout, waited time.Duration) *MutexTimeoutError {
	return &MutexTimeoutError{Name: name, Timeout: timeout, Waited: waited}
}

// Error implements the error interface
func (e *MutexTimeoutError) Error() string {
	return fmt.Sprintf(ErrMsgMutexTimeout, e.Timeout.Milliseconds(), e.Name)
}
