// Package lock serializes work on a key, within one process or across
// instances through Redis.
package lock

import (
	"context"
	"sync"

	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Locker acquires an exclusive hold on key until the returned release func is called
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// AcquireError classifies a failed Lock: cancelled when ctx is done, a store
// failure (Redis unreachable, auth) otherwise
func AcquireError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewContextCancelled(operation, err)
	}
	return apperrors.NewStoreFailed(operation, err)
}

// Local is an in-process keyed mutex
type Local struct {
	mu   sync.Mutex
	held map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an empty keyed mutex
func NewLocal() *Local {
	return &Local{held: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.held[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.held[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.drop(key, kl)
		})
	}, nil
}

func (l *Local) drop(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.held, key)
	}
}
