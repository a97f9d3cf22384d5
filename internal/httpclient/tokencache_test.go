package httpclient

import (
	"testing"
	"time"
)

func TestTokenCacheMissWhenAbsent(t *testing.T) {
	c := NewTokenCache()
	if _, ok := c.Get("target-a"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestTokenCacheHitWellBeforeExpiry(t *testing.T) {
	c := NewTokenCache()
	c.Set("target-a", "tok-1", time.Now().Add(10*time.Minute))
	v, ok := c.Get("target-a")
	if !ok || v != "tok-1" {
		t.Fatalf("expected cache hit, got %q %v", v, ok)
	}
}

func TestTokenCacheMissInsideLatencyBuffer(t *testing.T) {
	c := NewTokenCache()
	c.Set("target-a", "tok-1", time.Now().Add(30*time.Second))
	if _, ok := c.Get("target-a"); ok {
		t.Fatalf("expected miss when within the latency buffer of expiry")
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	c := NewTokenCache()
	c.Set("target-a", "tok-1", time.Now().Add(10*time.Minute))
	c.Invalidate("target-a")
	if _, ok := c.Get("target-a"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestTokenCasePrunesExpiredOnSet(t *testing.T) {
	c := NewTokenCache()
	c.Set("stale", "tok-stale", time.Now().Add(1*time.Second))
	c.Set("fresh", "tok-fresh", time.Now().Add(10*time.Minute))

	c.mu.Lock()
	_, stalePresent := c.tokens["stale"]
	c.mu.Unlock()
	if stalePresent {
		t.Fatalf("expected the near-expiry entry to be pruned on the next Set")
	}
}
