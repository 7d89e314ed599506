package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/petpair-backend/api/responses"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/petpair-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	shortReplayWindow = 24 * time.Hour
	longReplayWindow  = 7 * 24 * time.Hour
)

// replayPolicy marks a POST route as replayable. Patterns use path.Match
// syntax so they fit both chi patterns and concrete request paths.
type replayPolicy struct {
	pattern string
	window  time.Duration
}

var replayPolicies = []replayPolicy{
	{"/api/v1/auth/register", shortReplayWindow},
	{"/api/v1/listings", shortReplayWindow},
	{"/api/v1/listings/images/presign", shortReplayWindow},
	{"/api/v1/listings/*/pair-requests", shortReplayWindow},
	{"/api/v1/chat/messages", shortReplayWindow},
	{"/api/admin/v1/chat/threads/*/reply", shortReplayWindow},

	// Pair decisions and admin broadcasts fan out notifications.
	{"/api/v1/listings/*/pair-requests/*/respond", longReplayWindow},
	{"/api/admin/v1/notifications/send", longReplayWindow},
	{"/api/admin/v1/notifications/bulk", longReplayWindow},
}

// replayWindow reports how long a response for the route may be replayed.
func replayWindow(method, route string) (time.Duration, bool) {
	if method != http.MethodPost || route == "" {
		return 0, false
	}
	for _, policy := range replayPolicies {
		if ok, _ := path.Match(policy.pattern, route); ok {
			return policy.window, true
		}
	}
	return 0, false
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

type replayGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the first non-5xx response for a repeated
// Idempotency-Key on the routes listed in replayPolicies. Requests without
// the header pass straight through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	guard := &replayGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			window, ok := replayWindow(r.Method, matchedRoute(r))
			if !ok || clientKey == "" || guard.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.serve(w, r, next, clientKey, window)
		})
	}
}

func (g *replayGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, clientKey string, window time.Duration) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintBody(body)
	key := g.store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

	prior, err := g.lookup(r, key)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if prior != nil {
		if prior.Fingerprint != fingerprint {
			responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
			return
		}
		prior.writeTo(w)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	if capture.statusCode() >= http.StatusInternalServerError {
		return
	}
	g.remember(r, key, window, storedResponse{
		Status:      capture.statusCode(),
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
}

func (g *replayGuard) lookup(r *http.Request, key string) (*storedResponse, error) {
	raw, err := g.store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &prior, nil
}

func (g *replayGuard) remember(r *http.Request, key string, window time.Duration, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		_, err = g.store.SetNX(r.Context(), key, string(payload), window)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(g.logg.WithField(r.Context(), "idempotency_key", key), "persist idempotency record", err)
	}
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func fingerprintBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// matchedRoute prefers the chi pattern. Middleware on a subrouter runs
// before the final route resolves and only sees a "/*" prefix, so the raw
// path is used then.
func matchedRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
