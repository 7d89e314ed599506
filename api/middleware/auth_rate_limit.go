package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/petpair-backend/api/responses"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

// RateLimitStore counts requests inside a fixed window.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy caps attempts per client address and per account
// identifier (email or phone) on one auth surface.
type AuthRateLimitPolicy struct {
	name         string
	window       time.Duration
	ipLimit      int
	accountLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, accountLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, accountLimit: accountLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.accountLimit > 0)
}

// attemptBucket is one counter a request must stay under.
type attemptBucket struct {
	scope   string
	subject string
	limit   int
}

func (p AuthRateLimitPolicy) key(b attemptBucket) string {
	return "rl:" + b.scope + ":" + p.name + ":" + b.subject
}

// AuthRateLimit throttles credential endpoints before the handler runs.
// Account buckets are keyed by a hash of the identifier so raw emails and
// phone numbers never reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			for _, bucket := range buckets {
				count, err := store.IncrWithTTL(r.Context(), policy.key(bucket), policy.window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(bucket.limit) {
					policy.reject(w, r, logg, bucket, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p AuthRateLimitPolicy) buckets(r *http.Request) ([]attemptBucket, error) {
	var out []attemptBucket
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, attemptBucket{scope: "ip", subject: ip, limit: p.ipLimit})
		}
	}
	if p.accountLimit <= 0 {
		return out, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if account := accountIdentifier(body); account != "" {
		sum := sha256.Sum256([]byte(account))
		out = append(out, attemptBucket{scope: "account", subject: hex.EncodeToString(sum[:]), limit: p.accountLimit})
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(w http.ResponseWriter, r *http.Request, logg *logger.Logger, bucket attemptBucket, count int64) {
	if logg != nil {
		fields := map[string]any{
			"policy":         p.name,
			"scope":          bucket.scope,
			"attempts":       count,
			"limit":          bucket.limit,
			"window_seconds": int(p.window.Seconds()),
		}
		if bucket.scope == "ip" {
			fields["ip"] = bucket.subject
		} else {
			fields["account_hash"] = bucket.subject
		}
		logg.Warn(logg.WithFields(r.Context(), fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Seconds())))
	responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// accountIdentifier pulls the email (or the login emailOrPhone field) out
// of an auth payload, normalized for counting.
func accountIdentifier(payload []byte) string {
	var body struct {
		Email        string `json:"email"`
		EmailOrPhone string `json:"emailOrPhone"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	id := body.Email
	if id == "" {
		id = body.EmailOrPhone
	}
	return strings.ToLower(strings.TrimSpace(id))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
