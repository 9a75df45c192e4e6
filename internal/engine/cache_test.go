package engine

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type cachedSummary struct {
	VideoID string `json:"video_id"`
	Summary string `json:"summary"`
}

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("summary", "dQw4w9WgXcQ", "ko")
		k2 := CacheKey("summary", "dQw4w9WgXcQ", "ko")
		if k1 != k2 {
			t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
		}
	})

	t.Run("different inputs differ", func(t *testing.T) {
		k1 := CacheKey("summary", "dQw4w9WgXcQ", "ko")
		k2 := CacheKey("summary", "dQw4w9WgXcQ", "en")
		if k1 == k2 {
			t.Errorf("different inputs produced same key: %q", k1)
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		k := CacheKey("test")
		if k[:3] != "ys:" {
			t.Errorf("expected ys: prefix, got %q", k[:3])
		}
	})
}

func TestCacheLoadStoreJSON(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	t.Cleanup(CloseCache)

	ctx := context.Background()
	key := CacheKey("test", "round-trip")

	if _, ok := CacheLoadJSON[cachedSummary](ctx, key); ok {
		t.Error("expected cache miss on empty cache")
	}

	CacheStoreJSON(ctx, key, cachedSummary{VideoID: "abc", Summary: "hello"})

	got, ok := CacheLoadJSON[cachedSummary](ctx, key)
	if !ok {
		t.Fatal("expected cache hit after set")
	}
	if got.Summary != "hello" {
		t.Errorf("got summary %q, want %q", got.Summary, "hello")
	}
}

func TestCacheDecodeMismatch(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	t.Cleanup(CloseCache)

	ctx := context.Background()
	key := CacheKey("test", "mismatch")
	CacheStoreJSON(ctx, key, "plain string")

	if _, ok := CacheLoadJSON[cachedSummary](ctx, key); ok {
		t.Error("expected miss when cached JSON does not decode into T")
	}
}

func TestCacheExpiration(t *testing.T) {
	InitCache("", 1*time.Millisecond, 100, 5*time.Minute)
	t.Cleanup(CloseCache)

	ctx := context.Background()
	key := CacheKey("test", "expiry")

	CacheStoreJSON(ctx, key, cachedSummary{Summary: "temp"})
	time.Sleep(5 * time.Millisecond)

	if _, ok := CacheLoadJSON[cachedSummary](ctx, key); ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	InitCache("", 1*time.Minute, 3, 5*time.Minute)
	t.Cleanup(CloseCache)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := CacheKey("evict", fmt.Sprintf("item-%d", i))
		CacheStoreJSON(ctx, key, cachedSummary{Summary: fmt.Sprintf("v%d", i)})
	}

	count := 0
	resultCache.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 3 {
		t.Errorf("expected at most 3 entries after eviction, got %d", count)
	}
}

func TestCacheStats(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	t.Cleanup(CloseCache)
	cacheHits.Store(0)
	cacheMisses.Store(0)

	ctx := context.Background()
	key := CacheKey("stats", "test")

	CacheLoadJSON[cachedSummary](ctx, key)
	_, misses := CacheStats()
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}

	CacheStoreJSON(ctx, key, cachedSummary{Summary: "x"})
	CacheLoadJSON[cachedSummary](ctx, key)

	hits, misses := CacheStats()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}

func TestCacheDisabled(t *testing.T) {
	CloseCache()
	ctx := context.Background()
	CacheStoreJSON(ctx, "k", cachedSummary{Summary: "x"})
	if _, ok := CacheLoadJSON[cachedSummary](ctx, "k"); ok {
		t.Error("expected miss with cache disabled")
	}
}
