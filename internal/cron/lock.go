package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/instance"
)

const defaultLockTTL = 30 * time.Minute

// errLeaseLost means the cycle outran its lease and another worker may have
// run concurrently.
var errLeaseLost = errors.New("lock lease expired before release")

// Lock keeps a cron cycle to one worker at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a SET NX lease whose value names the holder. Release only
// deletes the key while it still carries that value.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

// NewRedisLock uses defaultLockTTL when ttl is not positive.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("lock store is required")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	candidate := fmt.Sprintf("%s:%s", instance.GetID(), uuid.NewString())
	won, err := l.store.SetNX(ctx, l.key, candidate, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.owner = candidate
	}
	return won, nil
}

// Release is a no-op when the lock is not held. It returns errLeaseLost when
// the key no longer carries this holder's value, leaving the new holder's
// lease untouched.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	deleted, err := l.store.CompareAndDelete(ctx, l.key, owner)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !deleted {
		return fmt.Errorf("%s: %w", l.key, errLeaseLost)
	}
	return nil
}
