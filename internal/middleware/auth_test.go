// auth_test.go — Unit tests for API key hashing and rate limiting.
package middleware

import (
	"context"
	"testing"
)

// TestTouchContextOutlivesRequest verifies the last_used_at write runs on
// a context that survives cancellation of the request it was spawned from.
func TestTouchContextOutlivesRequest(t *testing.T) {
	reqCtx, cancelReq := context.WithCancel(context.Background())
	cancelReq() // simulate the handler returning

	ctx, cancel := touchContext()
	defer cancel()

	if err := reqCtx.Err(); err == nil {
		t.Fatal("expected request context to be canceled")
	}
	if err := ctx.Err(); err != nil {
		t.Errorf("touch context should be live after request cancellation, got %v", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		t.Error("touch context should carry a deadline")
	}
}

// TestHashAPIKey verifies that hashing is deterministic and produces
// the expected SHA-256 output shape.
func TestHashAPIKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		key := "pta_determinism_test"
		hash1 := HashAPIKey(key)
		hash2 := HashAPIKey(key)
		if hash1 != hash2 {
			t.Errorf("HashAPIKey is not deterministic: %q != %q", hash1, hash2)
		}
	})

	t.Run("different inputs different outputs", func(t *testing.T) {
		hash1 := HashAPIKey("pta_key_one")
		hash2 := HashAPIKey("pta_key_two")
		if hash1 == hash2 {
			t.Error("HashAPIKey produced same hash for different inputs")
		}
	})

	// 256 bits = 64 hex characters
	t.Run("output length", func(t *testing.T) {
		hash := HashAPIKey("pta_any_key")
		if len(hash) != 64 {
			t.Errorf("HashAPIKey output length = %d, want 64", len(hash))
		}
	})
}

// TestRateLimiterAllow verifies bucket consumption and exhaustion.
func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	t.Run("allows up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			result := rl.allow("key-a", 3)
			if !result.allowed {
				t.Fatalf("request %d denied, want allowed", i+1)
			}
			if result.limit != 3 {
				t.Errorf("limit = %v, want 3", result.limit)
			}
		}
	})

	t.Run("denies once exhausted", func(t *testing.T) {
		result := rl.allow("key-a", 3)
		if result.allowed {
			t.Error("request over the limit allowed, want denied")
		}
		if result.remaining != 0 {
			t.Errorf("remaining = %v, want 0", result.remaining)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		result := rl.allow("key-b", 3)
		if !result.allowed {
			t.Error("fresh key denied, want allowed")
		}
	})
}

// TestRateLimiterRemaining verifies the remaining count counts down.
func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter()

	first := rl.allow("key-c", 10)
	second := rl.allow("key-c", 10)

	// Refill between calls is sub-millisecond at 10 tokens/hour; the
	// count must strictly decrease.
	if second.remaining >= first.remaining {
		t.Errorf("remaining did not decrease: %v then %v", first.remaining, second.remaining)
	}
}
