package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/petpair-backend/pkg/config"
)

func TestUserRateLimitBlocksBurst(t *testing.T) {
	pool := newLimiterPool(config.APIRateLimitConfig{WritesPerSecond: 1, Burst: 2})
	fixed := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return fixed }

	handler := userRateLimit(pool, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(user, method string) int {
		req := httptest.NewRequest(method, "/api/v1/listings", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("user-a", http.MethodPost); code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204 got %d", i, code)
		}
	}
	if code := send("user-a", http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
	if code := send("user-a", http.MethodGet); code != http.StatusNoContent {
		t.Fatalf("reads should not be throttled, got %d", code)
	}
	if code := send("user-b", http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("other users keep their own bucket, got %d", code)
	}

	fixed = fixed.Add(time.Second)
	if code := send("user-a", http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("expected refill after a second, got %d", code)
	}
}

func TestLimiterPoolEvictsIdleEntries(t *testing.T) {
	pool := newLimiterPool(config.APIRateLimitConfig{})
	now := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return now }

	pool.Allow("a")
	pool.Allow("b")
	if pool.size() != 2 {
		t.Fatalf("expected 2 limiters got %d", pool.size())
	}

	now = now.Add(limiterIdleTTL + time.Minute)
	pool.Allow("c")
	if pool.size() != 1 {
		t.Fatalf("expected idle limiters evicted, got %d", pool.size())
	}
}
