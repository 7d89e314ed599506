package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

// memoryReplayStore is an in-process stand-in for the redis idempotency store.
type memoryReplayStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryReplayStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryReplayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key], _ = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryReplayStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryReplayStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

// postWithKey builds a POST whose chi context already carries the route pattern.
func postWithKey(route, target, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rctx := chi.NewRouteContext()
	rctx.RoutePatterns = []string{route}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestReplayWindow(t *testing.T) {
	cases := []struct {
		method string
		route  string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/listings/{listingId}/pair-requests/{requestId}/respond", longReplayWindow, true},
		{http.MethodPost, "/api/v1/listings/7f7a3c1e-52f4-4b59-9d0b-2a43d7c9a001/pair-requests/2b1c/respond", longReplayWindow, true},
		{http.MethodPost, "/api/admin/v1/notifications/bulk", longReplayWindow, true},
		{http.MethodPost, "/api/v1/listings", shortReplayWindow, true},
		{http.MethodPost, "/api/v1/listings/{listingId}/pair-requests", shortReplayWindow, true},
		{http.MethodPost, "/api/admin/v1/chat/threads/{threadId}/reply", shortReplayWindow, true},
		{http.MethodGet, "/api/v1/listings/{listingId}/pair-requests", 0, false},
		{http.MethodPost, "/api/v1/listings/{listingId}/extend", 0, false},
		{http.MethodPost, "/api/v1/auth/login", 0, false},
	}
	for _, tc := range cases {
		got, ok := replayWindow(tc.method, tc.route)
		if ok != tc.ok || got != tc.want {
			t.Errorf("replayWindow(%s %s) = %v, %v; want %v, %v", tc.method, tc.route, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"listing-1"}`))
	}))

	body := `{"species":"cat","breed":"siamese"}`
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("/api/v1/listings", "/api/v1/listings", "k-1", body))
	if first.Code != http.StatusCreated || first.Header().Get(replayedHeader) != "" {
		t.Fatalf("first call: status %d replayed=%q", first.Code, first.Header().Get(replayedHeader))
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey("/api/v1/listings", "/api/v1/listings", "k-1", body))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d", second.Code)
	}
	if second.Header().Get(replayedHeader) != "true" {
		t.Fatal("replay should be flagged")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatal("content type not replayed")
	}
	if second.Body.String() != `{"id":"listing-1"}` {
		t.Fatalf("replay body = %s", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	for key, ttl := range store.ttls {
		if ttl != shortReplayWindow {
			t.Fatalf("%s stored with ttl %s", key, ttl)
		}
	}
}

func TestIdempotencyPassThrough(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		status int
	}{
		{name: "no header", status: http.StatusCreated},
		{name: "server error is not cached", key: "retry-me", status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryReplayStore()
			calls := 0
			handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tc.status)
			}))
			for i := 0; i < 2; i++ {
				handler.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/chat/messages", "/api/v1/chat/messages", tc.key, `{"body":"hi"}`))
			}
			if calls != 2 {
				t.Fatalf("handler ran %d times, want 2", calls)
			}
			if len(store.values) != 0 {
				t.Fatalf("unexpected stored records: %d", len(store.values))
			}
		})
	}
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	handler := Idempotency(newMemoryReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	route := "/api/admin/v1/notifications/send"
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey(route, route, "notice-1", `{"title":"a"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postWithKey(route, route, "notice-1", `{"title":"b"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("error code = %s", envelope.Error.Code)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for _, userID := range []string{"user-a", "user-b"} {
		req := postWithKey("/api/v1/chat/messages", "/api/v1/chat/messages", "same-key", `{"body":"hi"}`)
		req = req.WithContext(context.WithValue(req.Context(), ctxUserID, userID))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 || len(store.values) != 2 {
		t.Fatalf("calls=%d records=%d, want 2 and 2", calls, len(store.values))
	}
}
