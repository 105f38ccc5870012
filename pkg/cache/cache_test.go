package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClient is an in-memory stand-in for the Redis backend, with a movable
// clock so TTL expiry can be exercised.

type fakeEntry struct {
	data      string
	expiresAt time.Time
}

type fakeClient struct {
	entries map[string]fakeEntry
	now     time.Time
	getErr  error
	setErr  error
	scanErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		entries: make(map[string]fakeEntry),
		now:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	entry, ok := f.entries[key]
	if !ok || (!entry.expiresAt.IsZero() && !f.now.Before(entry.expiresAt)) {
		delete(f.entries, key)
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(entry.data, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = f.now.Add(expiration)
	}
	f.entries[key] = fakeEntry{data: string(value.([]byte)), expiresAt: expiresAt}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var deleted int64
	for _, key := range keys {
		if _, ok := f.entries[key]; ok {
			delete(f.entries, key)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

func (f *fakeClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	if f.scanErr != nil {
		return redis.NewScanCmdResult(nil, 0, f.scanErr)
	}
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

type testPayload struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Score float64  `json:"score"`
}

func TestCache_SetGetRoundtrip(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, zap.NewNop())
	ctx := context.Background()

	payload := testPayload{Name: "vector-db", Tags: []string{"search", "ai"}, Score: 4.5}
	c.Set(ctx, "servers:detail:abc", payload, 60*time.Second)

	var got testPayload
	require.True(t, c.Get(ctx, "servers:detail:abc", &got))
	assert.Equal(t, payload, got)
}

func TestCache_TTLExpiryBecomesMiss(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "k", testPayload{Name: "x"}, 60*time.Second)

	var got testPayload
	require.True(t, c.Get(ctx, "k", &got))

	client.now = client.now.Add(61 * time.Second)
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestCache_DeleteThenGetMisses(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "k", testPayload{Name: "x"}, time.Minute)
	c.Delete(ctx, "k")

	var got testPayload
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestCache_BackendErrorIsAMiss(t *testing.T) {
	client := newFakeClient()
	client.getErr = errors.New("connection refused")
	c := NewWithClient(client, zap.NewNop())

	var got testPayload
	assert.False(t, c.Get(context.Background(), "k", &got))
}

func TestCache_SetFailureIsSwallowed(t *testing.T) {
	client := newFakeClient()
	client.setErr = errors.New("connection refused")
	c := NewWithClient(client, zap.NewNop())

	// Must not panic or surface the failure.
	c.Set(context.Background(), "k", testPayload{Name: "x"}, time.Minute)
}

func TestCache_InvalidatePrefixOnlyRemovesFamily(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "dashboard:user:u1:recent", testPayload{}, time.Minute)
	c.Set(ctx, "dashboard:user:u1:stats", testPayload{}, time.Minute)
	c.Set(ctx, "dashboard:user:u2:recent", testPayload{}, time.Minute)

	c.InvalidatePrefix(ctx, "dashboard:user:u1")

	var got testPayload
	assert.False(t, c.Get(ctx, "dashboard:user:u1:recent", &got))
	assert.False(t, c.Get(ctx, "dashboard:user:u1:stats", &got))
	assert.True(t, c.Get(ctx, "dashboard:user:u2:recent", &got))
}

func TestCache_InvalidateUserClearsAllViewFamilies(t *testing.T) {
	client := newFakeClient()
	c := NewWithClient(client, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "dashboard:user:u1", testPayload{}, time.Minute)
	c.Set(ctx, "profile:user:u1", testPayload{}, time.Minute)
	c.Set(ctx, "ratings:user:u1:page:1", testPayload{}, time.Minute)
	c.Set(ctx, "servers:list:top-rated", testPayload{}, time.Minute)

	c.InvalidateUser(ctx, "u1")

	var got testPayload
	assert.False(t, c.Get(ctx, "dashboard:user:u1", &got))
	assert.False(t, c.Get(ctx, "profile:user:u1", &got))
	assert.False(t, c.Get(ctx, "ratings:user:u1:page:1", &got))
	assert.True(t, c.Get(ctx, "servers:list:top-rated", &got),
		"listing entries expire by TTL, not by user invalidation")
}

func TestCache_NilClientAlwaysMisses(t *testing.T) {
	c := New(nil, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, "k", testPayload{Name: "x"}, time.Minute)
	c.Delete(ctx, "k")
	c.InvalidatePrefix(ctx, "k")

	var got testPayload
	assert.False(t, c.Get(ctx, "k", &got))
}

func TestKey_JoinsPartsVerbatim(t *testing.T) {
	assert.Equal(t, "servers:list:newest:1", Key("servers", "list", "newest", "1"))
}
