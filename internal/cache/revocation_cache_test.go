package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RevocationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRevocationCache(client), mr
}

func TestRevokeAndCheck(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	revoked, err := cache.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !revoked {
		t.Error("expected jti-1 to be revoked")
	}
}

func TestAbsenceIsNotRevocation(t *testing.T) {
	cache, _ := newTestCache(t)

	revoked, err := cache.IsRevoked(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if revoked {
		t.Error("unknown jti reported as revoked")
	}
}

func TestRevocationExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Revoke(ctx, "jti-2", 10*time.Second); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	mr.FastForward(11 * time.Second)

	revoked, err := cache.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if revoked {
		t.Error("entry should have expired with the token")
	}
}

func TestRevokeNonPositiveTTL(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// A token revoked at the edge of its lifetime still gets a floor TTL
	// instead of a redis error for ttl <= 0.
	if err := cache.Revoke(ctx, "jti-3", 0); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	revoked, err := cache.IsRevoked(ctx, "jti-3")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !revoked {
		t.Error("expected jti-3 to be revoked")
	}
}
