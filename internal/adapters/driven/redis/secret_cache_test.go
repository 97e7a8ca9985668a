package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestSecretCache creates a miniredis-backed SecretCache
func setupTestSecretCache(t *testing.T) (*SecretCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewSecretCache(client), mr
}

func TestSecretCache_PutGet(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	secret, ok, err := cache.Get(ctx, "app-1", "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || secret != "sec1" {
		t.Errorf("got (%q, %v), want (sec1, true)", secret, ok)
	}

	key := "appconnect:temp_creds_secret:app-1:user-1"
	if !mr.Exists(key) {
		t.Fatalf("expected key %s", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL: got %v, want 1h", ttl)
	}
}

func TestSecretCache_ScopedToUser(t *testing.T) {
	cache, _ := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)

	if _, ok, _ := cache.Get(ctx, "app-1", "user-2"); ok {
		t.Error("secret must not be visible to another user")
	}
	if _, ok, _ := cache.Get(ctx, "app-2", "user-1"); ok {
		t.Error("secret must not be visible for another app")
	}
}

func TestSecretCache_Overwrite(t *testing.T) {
	cache, _ := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)
	_ = cache.Put(ctx, "app-1", "user-1", "sec2", time.Hour)

	secret, _, _ := cache.Get(ctx, "app-1", "user-1")
	if secret != "sec2" {
		t.Errorf("got %q, want sec2", secret)
	}
}

func TestSecretCache_Expiry(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)

	mr.FastForward(59 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "app-1", "user-1"); !ok {
		t.Error("secret expired early")
	}

	mr.FastForward(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "app-1", "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected secret to be expired")
	}
}

func TestSecretCache_NonPositiveTTL(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)
	if err := cache.Put(ctx, "app-1", "user-1", "sec2", 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, ok, _ := cache.Get(ctx, "app-1", "user-1"); ok {
		t.Error("non-positive ttl must not store a secret")
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("expected no keys, got %v", mr.Keys())
	}
}

func TestSecretCache_Delete(t *testing.T) {
	cache, _ := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)
	if err := cache.Delete(ctx, "app-1", "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "app-1", "user-1"); ok {
		t.Error("expected secret to be deleted")
	}

	if err := cache.Delete(ctx, "app-1", "missing"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestSecretCache_GetAndDelete(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)

	secret, ok, err := cache.GetAndDelete(ctx, "app-1", "user-1")
	if err != nil {
		t.Fatalf("GetAndDelete: %v", err)
	}
	if !ok || secret != "sec1" {
		t.Errorf("got (%q, %v), want (sec1, true)", secret, ok)
	}
	if mr.Exists("appconnect:temp_creds_secret:app-1:user-1") {
		t.Error("expected key to be removed")
	}

	if _, ok, err := cache.GetAndDelete(ctx, "app-1", "user-1"); err != nil || ok {
		t.Errorf("second consume: got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestSecretCache_GetAndDeleteExpired(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "app-1", "user-1", "sec1", time.Hour)
	mr.FastForward(time.Hour + time.Second)

	if _, ok, err := cache.GetAndDelete(ctx, "app-1", "user-1"); err != nil || ok {
		t.Errorf("got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestSecretCache_Unavailable(t *testing.T) {
	cache, mr := setupTestSecretCache(t)
	ctx := context.Background()

	if err := cache.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	mr.Close()

	if err := cache.Ping(ctx); err == nil {
		t.Error("expected ping error after shutdown")
	}
	if _, _, err := cache.Get(ctx, "app-1", "user-1"); err == nil {
		t.Error("expected read error after shutdown")
	}
}
