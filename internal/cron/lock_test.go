package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryLockStore()
	a, err := NewRedisLock(store, "ps:lock:cron-worker:test", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	b, _ := NewRedisLock(store, "ps:lock:cron-worker:test", 0)
	ctx := context.Background()

	if ok, err := a.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	if store.ttls["ps:lock:cron-worker:test"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["ps:lock:cron-worker:test"])
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatal("second worker must not acquire a held lock")
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("non-owner release: %v", err)
	}
	if _, held := store.values["ps:lock:cron-worker:test"]; !held {
		t.Fatal("non-owner release freed the lock")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("expected lock free after owner release")
	}
}

func TestRedisLockReleaseAfterLeaseLost(t *testing.T) {
	store := newMemoryLockStore()
	a, _ := NewRedisLock(store, "k", time.Minute)
	ctx := context.Background()
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire")
	}
	// lease expired and another worker took over
	store.values["k"] = "someone-else"
	if err := a.Release(ctx); !errors.Is(err, errLeaseLost) {
		t.Fatalf("expected lease lost, got %v", err)
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatal("stale owner deleted the new lease")
	}
}

func TestRedisLockOwnerNamesWorker(t *testing.T) {
	t.Setenv("PAINTSIP_WORKER_ID", "cron-a")
	store := newMemoryLockStore()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("acquire")
	}
	if !strings.HasPrefix(store.values["k"], "cron-a:") {
		t.Fatalf("expected owner prefixed by worker id, got %q", store.values["k"])
	}
}
