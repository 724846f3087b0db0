package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
)

// newTestRedisStore spins up an in-process redis and connects a store to it.
func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(config.RedisConfig{Addr: mr.Addr()}, ttl)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", sampleContext()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.CurrentVM != "101" {
		t.Errorf("CurrentVM = %q, want %q", got.CurrentVM, "101")
	}
	if got.LastIntent != domain.IntentStartVM {
		t.Errorf("LastIntent = %v, want %v", got.LastIntent, domain.IntentStartVM)
	}
}

func TestRedisStoreNotFound(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", sampleContext()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Load() after TTL error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", sampleContext()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Load() after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreLen(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, id, sampleContext()); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	// An unrelated key in the same database must not count.
	mr.Set("other:key", "x")

	if n, err := store.Len(ctx); err != nil || n != 3 {
		t.Errorf("Len() = %d, %v, want 3, nil", n, err)
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	if _, err := NewRedisStore(config.RedisConfig{Addr: "127.0.0.1:0"}, time.Minute); err == nil {
		t.Error("NewRedisStore(unreachable) expected an error")
	}
}
