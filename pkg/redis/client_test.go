package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/petpair-backend/pkg/config"
)

func TestIncrWithTTLStartsWindowOnce(t *testing.T) {
	store := newMemoryCmdable()
	client := &Client{store: store}
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, "pp:rl:ip:login:10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}
	if len(store.expires) != 1 || store.expires[0] != time.Minute {
		t.Fatalf("expiry should be set once, got %v", store.expires)
	}
}

func TestSessionIndexSetHelpers(t *testing.T) {
	store := newMemoryCmdable()
	client := &Client{store: store}
	ctx := context.Background()
	key := client.UserSessionsKey("7d2a")

	if err := client.SAdd(ctx, key, time.Hour, "jti-1", "jti-2"); err != nil {
		t.Fatalf("sadd: %v", err)
	}
	if err := client.SAdd(ctx, key, time.Hour); err != nil {
		t.Fatalf("empty sadd: %v", err)
	}
	if len(store.expires) != 1 {
		t.Fatalf("empty sadd must not touch expiry, got %d calls", len(store.expires))
	}
	if err := client.SRem(ctx, key, "jti-1"); err != nil {
		t.Fatalf("srem: %v", err)
	}
	members, err := client.SMembers(ctx, key)
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 1 || members[0] != "jti-2" {
		t.Fatalf("members = %v", members)
	}
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	client := &Client{store: newMemoryCmdable()}
	if _, err := client.Get(context.Background(), "pp:absent"); !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestZeroClientReportsNotConnected(t *testing.T) {
	var client Client
	ctx := context.Background()
	if err := client.Ping(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("ping err = %v", err)
	}
	if _, err := client.IncrWithTTL(ctx, "k", time.Second); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("incr err = %v", err)
	}
	if _, err := client.DelIfValue(ctx, "k", "owner"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("del-if-value err = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on zero client: %v", err)
	}
}

func TestKeyspace(t *testing.T) {
	var k keyspace
	cases := map[string]string{
		k.IdempotencyKey("user|POST|/api/v1/listings", "abc"): "pp:idempotency:user|POST|/api/v1/listings:abc",
		k.AccessSessionKey("jti"):                            "pp:session:access:jti",
		k.UserSessionsKey("u1"):                              "pp:session:user:u1",
		k.LockKey("cron-worker"):                             "pp:lock:cron-worker",
		k.LockKey(" "):                                       "pp:lock",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("key = %q, want %q", got, want)
		}
	}
}

func TestClientOptions(t *testing.T) {
	base := config.RedisConfig{PoolSize: 12, MinIdleConns: 3, DialTimeout: 2 * time.Second, DB: 4}

	fromURL := base
	fromURL.URL = "redis://:secret@cache.internal:6380/1"
	opts, err := clientOptions(fromURL)
	if err != nil {
		t.Fatalf("url options: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.DB != 1 || opts.Password != "secret" {
		t.Fatalf("url fields lost: %+v", opts)
	}
	if opts.PoolSize != 12 || opts.MinIdleConns != 3 || opts.DialTimeout != 2*time.Second {
		t.Fatalf("config defaults not applied: %+v", opts)
	}

	fromAddr := base
	fromAddr.Address = "localhost:6379"
	opts, err = clientOptions(fromAddr)
	if err != nil {
		t.Fatalf("addr options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 4 {
		t.Fatalf("addr options = %+v", opts)
	}

	if _, err := clientOptions(base); err == nil {
		t.Fatal("expected error without url or address")
	}
}

// memoryCmdable fakes the subset of go-redis commands the client issues.
// Scripts are not faked; the embedded nil Scripter panics if one runs.
type memoryCmdable struct {
	redis.Scripter
	values   map[string]string
	counters map[string]int64
	sets     map[string]map[string]bool
	expires  []time.Duration
}

func newMemoryCmdable() *memoryCmdable {
	return &memoryCmdable{
		values:   map[string]string{},
		counters: map[string]int64{},
		sets:     map[string]map[string]bool{},
	}
}

func (m *memoryCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *memoryCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memoryCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memoryCmdable) Expire(_ context.Context, _ string, ttl time.Duration) *redis.BoolCmd {
	m.expires = append(m.expires, ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.values, key)
		delete(m.sets, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *memoryCmdable) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	if m.sets[key] == nil {
		m.sets[key] = map[string]bool{}
	}
	for _, member := range members {
		m.sets[key][fmt.Sprint(member)] = true
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *memoryCmdable) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	for _, member := range members {
		delete(m.sets[key], fmt.Sprint(member))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (m *memoryCmdable) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return redis.NewStringSliceResult(out, nil)
}
